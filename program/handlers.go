package program

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// execute runs one decoded instruction against the working set. The caller
// discards the set when an error is returned.
func (inv *invocation) execute(ix dareme_protocol.Instruction) error {
	if err := inv.expectAccounts(); err != nil {
		return err
	}
	inv.log("Instruction: %s", pascalCase(inv.kind.Name()))

	switch ix := ix.(type) {
	case dareme_protocol.CreateDare:
		return inv.createDare(ix)
	case dareme_protocol.AcceptDare:
		return inv.acceptDare()
	case dareme_protocol.SubmitProof:
		return inv.submitProof(ix)
	case dareme_protocol.ApproveDare:
		return inv.approveDare()
	case dareme_protocol.RejectDare:
		return inv.rejectDare()
	case dareme_protocol.CancelDare:
		return inv.cancelDare()
	case dareme_protocol.RefuseDare:
		return inv.refuseDare()
	case dareme_protocol.ExpireDare:
		return inv.expireDare()
	}
	return dareme_protocol.ErrInstructionFallbackNotFound
}

func pascalCase(snake string) string {
	parts := strings.Split(snake, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// create_dare: challenger, dare, vault, challenger_stats, system_program
func (inv *invocation) createDare(ix dareme_protocol.CreateDare) error {
	challenger, err := inv.signer(0)
	if err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2, 3); err != nil {
		return err
	}
	if err := inv.systemProgram(4); err != nil {
		return err
	}

	dareKey, bump, err := dareme_protocol.FindDarePDAForProgram(inv.programID, challenger, ix.DareID)
	if err != nil || !dareKey.Equals(inv.key(1)) {
		return inv.fail(dareme_protocol.ErrCodeConstraintSeeds, 1)
	}
	vaultKey, vaultBump, err := dareme_protocol.FindVaultPDAForProgram(inv.programID, dareKey)
	if err != nil || !vaultKey.Equals(inv.key(2)) {
		return inv.fail(dareme_protocol.ErrCodeConstraintSeeds, 2)
	}
	if err := inv.systemAccount(2); err != nil {
		return err
	}
	if _, err := inv.expectStatsAddress(3, challenger); err != nil {
		return err
	}
	if acct := inv.ws.get(dareKey); acct != nil && (acct.Lamports > 0 || len(acct.Data) > 0) {
		return inv.fail(dareme_protocol.ErrCodeAccountAlreadyInUse, 1)
	}

	if ix.Amount == 0 {
		return dareme_protocol.ErrInvalidAmount
	}
	if ix.Deadline <= inv.now {
		return dareme_protocol.ErrDeadlinePassed
	}
	if ix.Deadline > inv.now+dareme_protocol.MaxDeadlineDuration {
		return dareme_protocol.ErrDeadlineTooFar
	}
	if ix.TargetDaree != nil && ix.TargetDaree.Equals(challenger) {
		return dareme_protocol.ErrCannotAcceptOwnDare
	}

	if err := inv.createAccount(challenger, 1, dareme_protocol.DareAccountSize); err != nil {
		return err
	}
	if err := transfer(inv.ws, challenger, vaultKey, ix.Amount); err != nil {
		return err
	}

	stats, err := inv.initStats(3, challenger, challenger)
	if err != nil {
		return err
	}
	if err := incrementCount(&stats.DaresCreated); err != nil {
		return err
	}
	if err := addLamports(&stats.TotalSpent, ix.Amount); err != nil {
		return err
	}

	dare := &dareme_protocol.Dare{
		Challenger:      challenger,
		DareID:          ix.DareID,
		DescriptionHash: ix.DescriptionHash,
		Amount:          ix.Amount,
		Status:          dareme_protocol.DareStatus_Created,
		DareType:        ix.DareType,
		WinnerSelection: ix.WinnerSelection,
		CreatedAt:       inv.now,
		Deadline:        ix.Deadline,
		Bump:            bump,
		VaultBump:       vaultBump,
	}
	if ix.TargetDaree != nil {
		target := *ix.TargetDaree
		dare.Daree = &target
	}

	if err := inv.storeStats(3, stats); err != nil {
		return err
	}
	if err := inv.storeDare(1, dare); err != nil {
		return err
	}
	inv.log("Dare created: id=%d, amount=%d, type=%s", dare.DareID, dare.Amount, dare.DareType)
	return nil
}

// accept_dare: daree, dare, daree_stats, system_program
func (inv *invocation) acceptDare() error {
	daree, err := inv.signer(0)
	if err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2); err != nil {
		return err
	}
	if err := inv.systemProgram(3); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}

	if dare.DareType != dareme_protocol.DareType_DirectDare {
		return dareme_protocol.ErrInvalidDareType
	}
	if dare.Status != dareme_protocol.DareStatus_Created {
		return dareme_protocol.ErrInvalidDareStatus
	}
	if daree.Equals(dare.Challenger) {
		return dareme_protocol.ErrCannotAcceptOwnDare
	}
	if inv.now >= dare.Deadline {
		return dareme_protocol.ErrDareExpired
	}
	if dare.HasDaree() && !dare.IsDaree(daree) {
		return dareme_protocol.ErrUnauthorizedDaree
	}

	stats, err := inv.initStats(2, daree, daree)
	if err != nil {
		return err
	}
	if err := incrementCount(&stats.DaresAccepted); err != nil {
		return err
	}

	dare.Daree = &daree
	dare.Status = dareme_protocol.DareStatus_Active
	dare.AcceptedAt = inv.now

	if err := inv.storeStats(2, stats); err != nil {
		return err
	}
	if err := inv.storeDare(1, dare); err != nil {
		return err
	}
	inv.log("Dare accepted by: %s", daree)
	return nil
}

// submit_proof: submitter, dare, submitter_stats, system_program
func (inv *invocation) submitProof(ix dareme_protocol.SubmitProof) error {
	submitter, err := inv.signer(0)
	if err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2); err != nil {
		return err
	}
	if err := inv.systemProgram(3); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}

	if inv.now >= dare.Deadline {
		return dareme_protocol.ErrDareExpired
	}
	if submitter.Equals(dare.Challenger) {
		return dareme_protocol.ErrCannotAcceptOwnDare
	}

	claim := false
	switch dare.DareType {
	case dareme_protocol.DareType_DirectDare:
		if dare.Status != dareme_protocol.DareStatus_Active && dare.Status != dareme_protocol.DareStatus_Rejected {
			return dareme_protocol.ErrInvalidDareStatus
		}
		if !dare.IsDaree(submitter) {
			return dareme_protocol.ErrUnauthorizedDaree
		}
	case dareme_protocol.DareType_PublicBounty:
		switch dare.Status {
		case dareme_protocol.DareStatus_Created:
			claim = true
		case dareme_protocol.DareStatus_Rejected:
			// Resubmission stays with whoever claimed the bounty.
			if !dare.IsDaree(submitter) {
				return dareme_protocol.ErrUnauthorizedDaree
			}
		default:
			return dareme_protocol.ErrInvalidDareStatus
		}
	default:
		return dareme_protocol.ErrInvalidDareType
	}

	stats, err := inv.initStats(2, submitter, submitter)
	if err != nil {
		return err
	}
	if claim {
		if err := incrementCount(&stats.DaresAccepted); err != nil {
			return err
		}
		dare.Daree = &submitter
	}

	proof := ix.ProofHash
	dare.ProofHash = &proof
	dare.Status = dareme_protocol.DareStatus_ProofSubmitted

	if err := inv.storeStats(2, stats); err != nil {
		return err
	}
	if err := inv.storeDare(1, dare); err != nil {
		return err
	}
	inv.log("Proof submitted for dare %d by %s", dare.DareID, submitter)
	return nil
}

// approve_dare: challenger, dare, vault, daree, daree_stats, system_program
func (inv *invocation) approveDare() error {
	if _, err := inv.signer(0); err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2, 3, 4); err != nil {
		return err
	}
	if err := inv.systemProgram(5); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}
	if err := inv.hasOneChallenger(0, dare); err != nil {
		return err
	}
	if err := inv.expectVault(2, dare); err != nil {
		return err
	}
	daree := inv.key(3)
	if !dare.IsDaree(daree) {
		return dareme_protocol.ErrUnauthorizedDaree
	}
	stats, err := inv.loadStats(4, daree)
	if err != nil {
		return err
	}

	if dare.Status != dareme_protocol.DareStatus_ProofSubmitted {
		return dareme_protocol.ErrInvalidDareStatus
	}

	dare.Status = dareme_protocol.DareStatus_Completed
	dare.CompletedAt = inv.now
	released, err := releaseVault(inv.ws, inv.programID, inv.key(1), dare, daree)
	if err != nil {
		return err
	}
	if err := incrementCount(&stats.DaresCompleted); err != nil {
		return err
	}
	if err := addLamports(&stats.TotalEarned, dare.Amount); err != nil {
		return err
	}

	if err := inv.storeStats(4, stats); err != nil {
		return err
	}
	if err := inv.storeDare(1, dare); err != nil {
		return err
	}
	inv.log("Dare %d approved! %d lamports released.", dare.DareID, released)
	return nil
}

// reject_dare: challenger, dare
func (inv *invocation) rejectDare() error {
	if _, err := inv.signer(0); err != nil {
		return err
	}
	if err := inv.writable(1); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}
	if err := inv.hasOneChallenger(0, dare); err != nil {
		return err
	}

	if dare.Status != dareme_protocol.DareStatus_ProofSubmitted {
		return dareme_protocol.ErrInvalidDareStatus
	}

	dare.Status = dareme_protocol.DareStatus_Rejected
	dare.ProofHash = nil

	if err := inv.storeDare(1, dare); err != nil {
		return err
	}
	inv.log("Dare %d proof rejected. Daree can re-submit.", dare.DareID)
	return nil
}

// cancel_dare: challenger, dare, vault, challenger_stats, system_program
func (inv *invocation) cancelDare() error {
	challenger, err := inv.signer(0)
	if err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2, 3); err != nil {
		return err
	}
	if err := inv.systemProgram(4); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}
	if err := inv.hasOneChallenger(0, dare); err != nil {
		return err
	}
	if err := inv.expectVault(2, dare); err != nil {
		return err
	}
	stats, err := inv.loadStats(3, challenger)
	if err != nil {
		return err
	}

	if dare.Status != dareme_protocol.DareStatus_Created {
		return dareme_protocol.ErrInvalidDareStatus
	}

	dare.Status = dareme_protocol.DareStatus_Cancelled
	refunded, err := inv.refund(dare, challenger, stats, 3)
	if err != nil {
		return err
	}
	inv.log("Dare %d cancelled. %d lamports refunded.", dare.DareID, refunded)
	return nil
}

// refuse_dare: daree, dare, vault, challenger, challenger_stats, system_program
func (inv *invocation) refuseDare() error {
	daree, err := inv.signer(0)
	if err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2, 3, 4); err != nil {
		return err
	}
	if err := inv.systemProgram(5); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}
	if err := inv.expectVault(2, dare); err != nil {
		return err
	}
	if !inv.key(3).Equals(dare.Challenger) {
		return dareme_protocol.ErrUnauthorizedChallenger
	}
	stats, err := inv.loadStats(4, dare.Challenger)
	if err != nil {
		return err
	}

	if dare.DareType != dareme_protocol.DareType_DirectDare {
		return dareme_protocol.ErrInvalidDareType
	}
	if dare.Status != dareme_protocol.DareStatus_Created {
		return dareme_protocol.ErrInvalidDareStatus
	}
	if !dare.HasDaree() {
		return dareme_protocol.ErrNotTargetedDare
	}
	if !dare.IsDaree(daree) {
		return dareme_protocol.ErrUnauthorizedDaree
	}

	dare.Status = dareme_protocol.DareStatus_Refused
	dare.RefusedAt = inv.now
	refunded, err := inv.refund(dare, dare.Challenger, stats, 4)
	if err != nil {
		return err
	}
	inv.log("Dare %d refused by %s. %d lamports refunded to challenger.", dare.DareID, daree, refunded)
	return nil
}

// expire_dare: caller, dare, vault, challenger, challenger_stats, system_program
func (inv *invocation) expireDare() error {
	if _, err := inv.signer(0); err != nil {
		return err
	}
	if err := inv.writable(0, 1, 2, 3, 4); err != nil {
		return err
	}
	if err := inv.systemProgram(5); err != nil {
		return err
	}
	dare, err := inv.loadDare(1)
	if err != nil {
		return err
	}
	if err := inv.expectVault(2, dare); err != nil {
		return err
	}
	stats, err := inv.loadStats(4, dare.Challenger)
	if err != nil {
		return err
	}

	switch dare.Status {
	case dareme_protocol.DareStatus_Created,
		dareme_protocol.DareStatus_Active,
		dareme_protocol.DareStatus_ProofSubmitted,
		dareme_protocol.DareStatus_Rejected:
		if inv.now <= dare.Deadline {
			return dareme_protocol.ErrDareNotExpired
		}
	default:
		return dareme_protocol.ErrInvalidDareStatus
	}
	if !inv.key(3).Equals(dare.Challenger) {
		return dareme_protocol.ErrUnauthorizedChallenger
	}

	dare.Status = dareme_protocol.DareStatus_Expired
	refunded, err := inv.refund(dare, dare.Challenger, stats, 4)
	if err != nil {
		return err
	}
	inv.log("Dare %d expired. %d lamports refunded to challenger.", dare.DareID, refunded)
	return nil
}

// refund returns the escrow to the challenger and rolls back total_spent.
func (inv *invocation) refund(dare *dareme_protocol.Dare, challenger solana.PublicKey, stats *dareme_protocol.UserStats, statsIndex int) (uint64, error) {
	refunded, err := releaseVault(inv.ws, inv.programID, inv.key(dareme_protocol.DareAccountIndex), dare, challenger)
	if err != nil {
		return 0, err
	}
	subLamportsSaturating(&stats.TotalSpent, dare.Amount)

	if err := inv.storeStats(statsIndex, stats); err != nil {
		return 0, err
	}
	if err := inv.storeDare(dareme_protocol.DareAccountIndex, dare); err != nil {
		return 0, err
	}
	return refunded, nil
}
