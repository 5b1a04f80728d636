package program

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

type accountRef struct {
	key        solana.PublicKey
	isSigner   bool
	isWritable bool
}

// invocation is one program instruction resolved against the transaction.
type invocation struct {
	programID solana.PublicKey
	kind      dareme_protocol.InstructionKind
	accounts  []accountRef
	ws        *workingSet
	now       int64
	logs      []string
}

func (inv *invocation) log(format string, args ...any) {
	inv.logs = append(inv.logs, "Program log: "+fmt.Sprintf(format, args...))
}

func (inv *invocation) name(i int) string {
	names := inv.kind.AccountNames()
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("account[%d]", i)
}

func (inv *invocation) fail(code dareme_protocol.ErrorCode, i int) error {
	return dareme_protocol.NewProgramError(code, inv.name(i))
}

func (inv *invocation) key(i int) solana.PublicKey {
	return inv.accounts[i].key
}

func (inv *invocation) expectAccounts() error {
	want := len(inv.kind.AccountNames())
	if len(inv.accounts) < want {
		return dareme_protocol.NewProgramError(dareme_protocol.ErrCodeAccountNotEnoughKeys,
			fmt.Sprintf("%s: %d of %d accounts", inv.kind, len(inv.accounts), want))
	}
	return nil
}

func (inv *invocation) signer(i int) (solana.PublicKey, error) {
	if !inv.accounts[i].isSigner {
		return solana.PublicKey{}, inv.fail(dareme_protocol.ErrCodeConstraintSigner, i)
	}
	return inv.accounts[i].key, nil
}

func (inv *invocation) writable(indices ...int) error {
	for _, i := range indices {
		if !inv.accounts[i].isWritable {
			return inv.fail(dareme_protocol.ErrCodeConstraintMut, i)
		}
	}
	return nil
}

func (inv *invocation) systemProgram(i int) error {
	if !inv.key(i).Equals(solana.SystemProgramID) {
		return inv.fail(dareme_protocol.ErrCodeInvalidProgramID, i)
	}
	return nil
}

// systemAccount rejects accounts that hold data or belong to another program.
func (inv *invocation) systemAccount(i int) error {
	acct := inv.ws.get(inv.key(i))
	if acct != nil && (!acct.Owner.Equals(solana.SystemProgramID) || len(acct.Data) > 0) {
		return inv.fail(dareme_protocol.ErrCodeConstraintOwner, i)
	}
	return nil
}

// programAccount returns the data of an initialized account owned by the program.
func (inv *invocation) programAccount(i int, discriminator [8]byte) ([]byte, error) {
	acct := inv.ws.get(inv.key(i))
	if acct == nil || len(acct.Data) == 0 {
		return nil, inv.fail(dareme_protocol.ErrCodeAccountNotInitialized, i)
	}
	if !acct.Owner.Equals(inv.programID) {
		return nil, inv.fail(dareme_protocol.ErrCodeConstraintOwner, i)
	}
	if len(acct.Data) < 8 || !bytes.Equal(acct.Data[:8], discriminator[:]) {
		return nil, inv.fail(dareme_protocol.ErrCodeAccountDiscriminatorMismatch, i)
	}
	return acct.Data, nil
}

// loadDare decodes the dare at i and checks that its key is the address
// derived from its own challenger, id and bump.
func (inv *invocation) loadDare(i int) (*dareme_protocol.Dare, error) {
	data, err := inv.programAccount(i, dareme_protocol.Account_Dare)
	if err != nil {
		return nil, err
	}
	dare, err := dareme_protocol.ParseAccount_Dare(data)
	if err != nil {
		return nil, dareme_protocol.NewProgramError(dareme_protocol.ErrCodeAccountDidNotDeserialize, err.Error())
	}
	want, err := dareme_protocol.CreateDareAddress(inv.programID, dare.Challenger, dare.DareID, dare.Bump)
	if err != nil || !want.Equals(inv.key(i)) {
		return nil, inv.fail(dareme_protocol.ErrCodeConstraintSeeds, i)
	}
	return dare, nil
}

func (inv *invocation) storeDare(i int, dare *dareme_protocol.Dare) error {
	data, err := dare.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode dare: %w", err)
	}
	inv.ws.get(inv.key(i)).Data = data
	return nil
}

// expectVault checks the vault at i against the dare's recorded vault bump.
func (inv *invocation) expectVault(i int, dare *dareme_protocol.Dare) error {
	want, err := dareme_protocol.CreateVaultAddress(inv.programID, inv.key(dareme_protocol.DareAccountIndex), dare.VaultBump)
	if err != nil || !want.Equals(inv.key(i)) {
		return inv.fail(dareme_protocol.ErrCodeConstraintSeeds, i)
	}
	return inv.systemAccount(i)
}

// expectStatsAddress checks that the account at i is the stats address of user.
func (inv *invocation) expectStatsAddress(i int, user solana.PublicKey) (uint8, error) {
	want, bump, err := dareme_protocol.FindUserStatsPDAForProgram(inv.programID, user)
	if err != nil || !want.Equals(inv.key(i)) {
		return 0, inv.fail(dareme_protocol.ErrCodeConstraintSeeds, i)
	}
	return bump, nil
}

// hasOneChallenger requires the account at i to be the dare's challenger.
func (inv *invocation) hasOneChallenger(i int, dare *dareme_protocol.Dare) error {
	if !inv.key(i).Equals(dare.Challenger) {
		return inv.fail(dareme_protocol.ErrCodeConstraintHasOne, i)
	}
	return nil
}

// createAccount allocates a program-owned record funded by payer at the
// rent-exempt minimum. A system account that already holds lamports is
// topped up to that minimum and then assigned.
func (inv *invocation) createAccount(payer solana.PublicKey, i int, space int) error {
	key := inv.key(i)
	need := MinimumBalance(space)
	if acct := inv.ws.get(key); acct != nil {
		if len(acct.Data) > 0 || !acct.Owner.Equals(solana.SystemProgramID) {
			return inv.fail(dareme_protocol.ErrCodeAccountAlreadyInUse, i)
		}
		if acct.Lamports >= need {
			need = 0
		} else {
			need -= acct.Lamports
		}
	}
	if err := transfer(inv.ws, payer, key, need); err != nil {
		return err
	}
	acct := inv.ws.get(key)
	acct.Owner = inv.programID
	acct.Data = make([]byte, space)
	return nil
}
