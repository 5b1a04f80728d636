package program

import (
	"math"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// transfer moves lamports between two accounts of the working set.
func transfer(ws *workingSet, from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 || from.Equals(to) {
		return nil
	}
	src := ws.get(from)
	if src == nil || src.Lamports < lamports {
		return dareme_protocol.NewProgramError(dareme_protocol.ErrCodeInsufficientFunds, from.String())
	}
	dst := ws.getOrCreate(to)
	if dst.Lamports > math.MaxUint64-lamports {
		return dareme_protocol.NewProgramError(dareme_protocol.ErrCodeArithmeticOverflow, to.String())
	}
	src.Lamports -= lamports
	dst.Lamports += lamports
	return nil
}

// releaseVault empties the escrow of the dare at dareKey into recipient and
// closes the vault. The vault address is re-derived from the dare key and
// the recorded vault bump; callers cannot name another source account.
func releaseVault(ws *workingSet, programID, dareKey solana.PublicKey, dare *dareme_protocol.Dare, recipient solana.PublicKey) (uint64, error) {
	vault, err := dareme_protocol.CreateVaultAddress(programID, dareKey, dare.VaultBump)
	if err != nil {
		return 0, dareme_protocol.NewProgramError(dareme_protocol.ErrCodeConstraintSeeds, "vault")
	}
	acct := ws.get(vault)
	if acct == nil {
		return 0, nil
	}
	lamports := acct.Lamports
	if err := transfer(ws, vault, recipient, lamports); err != nil {
		return 0, err
	}
	ws.remove(vault)
	return lamports, nil
}
