package program

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
)

var (
	dareRent  = MinimumBalance(dareme_protocol.DareAccountSize)
	statsRent = MinimumBalance(dareme_protocol.UserStatsAccountSize)
)

func TestMinimumBalance(t *testing.T) {
	assert.Equal(t, uint64(2_275_920), dareRent)
	assert.Equal(t, uint64(1_398_960), statsRent)
}

func TestCreateDareFundsVault(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()

	args := h.directArgs(nil)
	dare := h.mustCreate(challenger, args)

	assert.Equal(t, oneSol, h.balance(h.vault(dare)))
	assert.Equal(t, dareRent, h.balance(dare))
	assert.Equal(t, startingSol-oneSol-dareRent-statsRent, h.balance(challenger.PublicKey()))

	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Created, d.Status)
	assert.False(t, d.HasDaree())
	assert.Equal(t, challenger.PublicKey(), d.Challenger)
	assert.Equal(t, args.DareID, d.DareID)
	assert.Equal(t, h.unix(), d.CreatedAt)
	assert.Equal(t, args.Deadline, d.Deadline)

	stats := h.stats(challenger.PublicKey())
	assert.Equal(t, uint32(1), stats.DaresCreated)
	assert.Equal(t, oneSol, stats.TotalSpent)
	assert.Equal(t, challenger.PublicKey(), stats.User)
}

func TestCreateDareValidation(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	self := challenger.PublicKey()

	tests := []struct {
		name   string
		mutate func(*dareme_protocol.CreateDare)
		want   error
	}{
		{"zero amount", func(a *dareme_protocol.CreateDare) { a.Amount = 0 }, dareme_protocol.ErrInvalidAmount},
		{"deadline now", func(a *dareme_protocol.CreateDare) { a.Deadline = h.unix() }, dareme_protocol.ErrDeadlinePassed},
		{"deadline past", func(a *dareme_protocol.CreateDare) { a.Deadline = h.unix() - 1 }, dareme_protocol.ErrDeadlinePassed},
		{"deadline too far", func(a *dareme_protocol.CreateDare) {
			a.Deadline = h.unix() + dareme_protocol.MaxDeadlineDuration + 1
		}, dareme_protocol.ErrDeadlineTooFar},
		{"self target", func(a *dareme_protocol.CreateDare) { a.TargetDaree = &self }, dareme_protocol.ErrCannotAcceptOwnDare},
		{"insufficient funds", func(a *dareme_protocol.CreateDare) { a.Amount = 100 * oneSol }, dareme_protocol.ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.balance(self)
			args := h.directArgs(nil)
			tt.mutate(&args)

			dare, err := h.create(challenger, args)
			require.ErrorIs(t, err, tt.want)

			_, exists := h.rt.Ledger().Account(dare)
			assert.False(t, exists)
			assert.Zero(t, h.balance(h.vault(dare)))
			assert.Equal(t, before, h.balance(self))
		})
	}

	t.Run("deadline at the limit", func(t *testing.T) {
		args := h.directArgs(nil)
		args.Deadline = h.unix() + dareme_protocol.MaxDeadlineDuration
		_, err := h.create(challenger, args)
		require.NoError(t, err)
	})
}

func TestCreateDareDuplicateID(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	args := h.directArgs(nil)
	h.mustCreate(challenger, args)

	args.Amount = 2 * oneSol
	h.advance(time.Second)
	_, err := h.create(challenger, args)
	require.ErrorIs(t, err, dareme_protocol.ErrAccountAlreadyInUse)

	// Same id under another challenger is a different dare.
	_, err = h.create(h.funded(), args)
	require.NoError(t, err)
}

func TestCreateDareOnPrefundedStats(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	stats := h.statsKey(challenger.PublicKey())
	require.NoError(t, h.rt.Ledger().Airdrop(stats, 1))

	h.mustCreate(challenger, h.directArgs(nil))

	assert.Equal(t, statsRent, h.balance(stats))
	assert.Equal(t, startingSol-oneSol-dareRent-(statsRent-1), h.balance(challenger.PublicKey()))
	assert.Equal(t, uint32(1), h.stats(challenger.PublicKey()).DaresCreated)
}

func TestCreateDareOnPrefundedDare(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	args := h.directArgs(nil)
	accounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), challenger.PublicKey(), args.DareID)
	require.NoError(t, err)
	require.NoError(t, h.rt.Ledger().Airdrop(accounts.Dare, dareRent+5))

	dare := h.mustCreate(challenger, args)

	assert.Equal(t, accounts.Dare, dare)
	assert.Equal(t, dareRent+5, h.balance(dare), "an over-funded address is not topped up")
	assert.Equal(t, startingSol-oneSol-statsRent, h.balance(challenger.PublicKey()))
	assert.Equal(t, dareme_protocol.DareStatus_Created, h.dare(dare).Status)
	assert.Equal(t, oneSol, h.balance(h.vault(dare)))
}

func TestAcceptOnPrefundedStats(t *testing.T) {
	h := newHarness(t)
	dare := h.mustCreate(h.funded(), h.directArgs(nil))
	daree := h.funded()
	require.NoError(t, h.rt.Ledger().Airdrop(h.statsKey(daree.PublicKey()), 1))

	require.NoError(t, h.accept(daree, dare))
	assert.Equal(t, statsRent, h.balance(h.statsKey(daree.PublicKey())))
	assert.Equal(t, dareme_protocol.DareStatus_Active, h.dare(dare).Status)
}

func TestTargetedAccept(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	target := h.funded()
	targetKey := target.PublicKey()
	dare := h.mustCreate(challenger, h.directArgs(&targetKey))

	for i := 0; i < 5; i++ {
		err := h.accept(h.funded(), dare)
		require.ErrorIs(t, err, dareme_protocol.ErrUnauthorizedDaree)
	}
	assert.Equal(t, dareme_protocol.DareStatus_Created, h.dare(dare).Status)

	h.advance(time.Minute)
	require.NoError(t, h.accept(target, dare))
	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Active, d.Status)
	assert.True(t, d.IsDaree(targetKey))
	assert.Equal(t, h.unix(), d.AcceptedAt)
	assert.Equal(t, uint32(1), h.stats(targetKey).DaresAccepted)
}

func TestAcceptPreconditions(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()

	bounty := h.mustCreate(challenger, h.bountyArgs())
	assert.ErrorIs(t, h.accept(h.funded(), bounty), dareme_protocol.ErrInvalidDareType)

	dare := h.mustCreate(challenger, h.directArgs(nil))
	assert.ErrorIs(t, h.accept(challenger, dare), dareme_protocol.ErrCannotAcceptOwnDare)

	daree := h.funded()
	require.NoError(t, h.accept(daree, dare))
	h.advance(time.Second)
	assert.ErrorIs(t, h.accept(h.funded(), dare), dareme_protocol.ErrInvalidDareStatus)

	late := h.mustCreate(challenger, h.directArgs(nil))
	h.advance(25 * time.Hour)
	assert.ErrorIs(t, h.accept(daree, late), dareme_protocol.ErrDareExpired)
}

func TestPublicBountyClaimBySubmission(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	dare := h.mustCreate(challenger, h.bountyArgs())

	hunter := h.funded()
	proof := dareme_protocol.HashProof("clip-1")
	require.NoError(t, h.submitProof(hunter, dare, proof))

	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_ProofSubmitted, d.Status)
	assert.True(t, d.IsDaree(hunter.PublicKey()))
	require.NotNil(t, d.ProofHash)
	assert.Equal(t, proof, *d.ProofHash)
	assert.Equal(t, uint32(1), h.stats(hunter.PublicKey()).DaresAccepted)

	rival := h.funded()
	assert.ErrorIs(t, h.submitProof(rival, dare, proof), dareme_protocol.ErrInvalidDareStatus)

	require.NoError(t, h.reject(challenger, dare))
	assert.ErrorIs(t, h.submitProof(rival, dare, proof), dareme_protocol.ErrUnauthorizedDaree)
	require.NoError(t, h.submitProof(hunter, dare, dareme_protocol.HashProof("clip-2")))
	assert.Equal(t, uint32(1), h.stats(hunter.PublicKey()).DaresAccepted)
}

func TestSubmitProofPreconditions(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	daree := h.funded()
	proof := dareme_protocol.HashProof("proof")

	dare := h.mustCreate(challenger, h.directArgs(nil))
	assert.ErrorIs(t, h.submitProof(daree, dare, proof), dareme_protocol.ErrInvalidDareStatus)
	require.NoError(t, h.accept(daree, dare))

	assert.ErrorIs(t, h.submitProof(challenger, dare, proof), dareme_protocol.ErrCannotAcceptOwnDare)
	assert.ErrorIs(t, h.submitProof(h.funded(), dare, proof), dareme_protocol.ErrUnauthorizedDaree)

	h.advance(24 * time.Hour)
	assert.ErrorIs(t, h.submitProof(daree, dare, proof), dareme_protocol.ErrDareExpired)
}

func TestDirectDareLifecycle(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	daree := h.funded()
	total := h.rt.Ledger().TotalLamports()

	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.accept(daree, dare))
	require.NoError(t, h.submitProof(daree, dare, dareme_protocol.HashProof("done")))

	before := h.balance(daree.PublicKey())
	h.advance(time.Hour)
	require.NoError(t, h.approve(challenger, dare, daree.PublicKey()))

	assert.Equal(t, before+oneSol, h.balance(daree.PublicKey()))
	assert.Zero(t, h.balance(h.vault(dare)))
	_, vaultExists := h.rt.Ledger().Account(h.vault(dare))
	assert.False(t, vaultExists)

	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Completed, d.Status)
	assert.Equal(t, h.unix(), d.CompletedAt)

	stats := h.stats(daree.PublicKey())
	assert.Equal(t, uint32(1), stats.DaresCompleted)
	assert.Equal(t, oneSol, stats.TotalEarned)
	assert.Equal(t, total, h.rt.Ledger().TotalLamports())

	h.advance(time.Second)
	err := h.approve(challenger, dare, daree.PublicKey())
	assert.ErrorIs(t, err, dareme_protocol.ErrInvalidDareStatus)
	assert.Equal(t, before+oneSol, h.balance(daree.PublicKey()))
}

func TestResubmissionRoundTrip(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	daree := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.accept(daree, dare))

	first := dareme_protocol.HashProof("blurry")
	second := dareme_protocol.HashProof("sharp")
	require.NoError(t, h.submitProof(daree, dare, first))
	require.NoError(t, h.reject(challenger, dare))

	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Rejected, d.Status)
	assert.Nil(t, d.ProofHash)
	assert.ErrorIs(t, h.approve(challenger, dare, daree.PublicKey()), dareme_protocol.ErrInvalidDareStatus)

	require.NoError(t, h.submitProof(daree, dare, second))
	require.NoError(t, h.approve(challenger, dare, daree.PublicKey()))

	d = h.dare(dare)
	require.NotNil(t, d.ProofHash)
	assert.Equal(t, second, *d.ProofHash)
	assert.Equal(t, dareme_protocol.DareStatus_Completed, d.Status)
}

func TestCancelBeforeAccept(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	afterCreate := h.balance(challenger.PublicKey())

	assert.ErrorIs(t, h.cancel(h.funded(), dare), dareme_protocol.ErrConstraintHasOne)

	require.NoError(t, h.cancel(challenger, dare))
	assert.Equal(t, afterCreate+oneSol, h.balance(challenger.PublicKey()))
	assert.Zero(t, h.stats(challenger.PublicKey()).TotalSpent)
	assert.Equal(t, dareme_protocol.DareStatus_Cancelled, h.dare(dare).Status)

	h.advance(time.Second)
	assert.ErrorIs(t, h.cancel(challenger, dare), dareme_protocol.ErrInvalidDareStatus)
}

func TestCancelAfterAcceptFails(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.accept(h.funded(), dare))
	assert.ErrorIs(t, h.cancel(challenger, dare), dareme_protocol.ErrInvalidDareStatus)
	assert.Equal(t, oneSol, h.balance(h.vault(dare)))
}

func TestRefuseDare(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	target := h.funded()
	targetKey := target.PublicKey()

	open := h.mustCreate(challenger, h.directArgs(nil))
	assert.ErrorIs(t, h.refuse(target, open, challenger.PublicKey()), dareme_protocol.ErrNotTargetedDare)

	bounty := h.mustCreate(challenger, h.bountyArgs())
	assert.ErrorIs(t, h.refuse(target, bounty, challenger.PublicKey()), dareme_protocol.ErrInvalidDareType)

	dare := h.mustCreate(challenger, h.directArgs(&targetKey))
	assert.ErrorIs(t, h.refuse(h.funded(), dare, challenger.PublicKey()), dareme_protocol.ErrUnauthorizedDaree)
	assert.ErrorIs(t, h.refuse(target, dare, targetKey), dareme_protocol.ErrUnauthorizedChallenger)

	before := h.balance(challenger.PublicKey())
	h.advance(time.Minute)
	require.NoError(t, h.refuse(target, dare, challenger.PublicKey()))

	d := h.dare(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Refused, d.Status)
	assert.Equal(t, h.unix(), d.RefusedAt)
	assert.Equal(t, before+oneSol, h.balance(challenger.PublicKey()))
	assert.Zero(t, h.balance(h.vault(dare)))
	// Two dares still escrowed.
	assert.Equal(t, 2*oneSol, h.stats(challenger.PublicKey()).TotalSpent)

	h.advance(time.Second)
	assert.ErrorIs(t, h.accept(target, dare), dareme_protocol.ErrInvalidDareStatus)
}

func TestExpireDare(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	daree := h.funded()
	crank := h.funded()

	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.accept(daree, dare))
	require.NoError(t, h.submitProof(daree, dare, dareme_protocol.HashProof("late")))

	err := h.expire(crank, dare, challenger.PublicKey(), challenger.PublicKey())
	assert.ErrorIs(t, err, dareme_protocol.ErrDareNotExpired)

	h.advance(24*time.Hour + time.Second)
	err = h.expire(crank, dare, daree.PublicKey(), challenger.PublicKey())
	assert.ErrorIs(t, err, dareme_protocol.ErrUnauthorizedChallenger)

	before := h.balance(challenger.PublicKey())
	crankBefore := h.balance(crank.PublicKey())
	require.NoError(t, h.expire(crank, dare, challenger.PublicKey(), challenger.PublicKey()))

	assert.Equal(t, dareme_protocol.DareStatus_Expired, h.dare(dare).Status)
	assert.Equal(t, before+oneSol, h.balance(challenger.PublicKey()))
	assert.Equal(t, crankBefore, h.balance(crank.PublicKey()))
	assert.Zero(t, h.stats(challenger.PublicKey()).TotalSpent)
	assert.Zero(t, h.stats(daree.PublicKey()).DaresFailed)

	h.advance(time.Second)
	err = h.expire(crank, dare, challenger.PublicKey(), challenger.PublicKey())
	assert.ErrorIs(t, err, dareme_protocol.ErrInvalidDareStatus)
}

func TestExpireByChallenger(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	afterCreate := h.balance(challenger.PublicKey())

	h.advance(48 * time.Hour)
	require.NoError(t, h.expire(challenger, dare, challenger.PublicKey(), challenger.PublicKey()))
	assert.Equal(t, afterCreate+oneSol, h.balance(challenger.PublicKey()))
}

func TestExpireTerminalStatuses(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.cancel(challenger, dare))

	h.advance(48 * time.Hour)
	err := h.expire(h.funded(), dare, challenger.PublicKey(), challenger.PublicKey())
	assert.ErrorIs(t, err, dareme_protocol.ErrInvalidDareStatus)
}

func TestEscrowConservation(t *testing.T) {
	paths := map[string]func(h *harness, challenger, daree solana.PrivateKey, dare solana.PublicKey){
		"approve": func(h *harness, c, d solana.PrivateKey, dare solana.PublicKey) {
			require.NoError(h.t, h.accept(d, dare))
			require.NoError(h.t, h.submitProof(d, dare, dareme_protocol.HashProof("x")))
			require.NoError(h.t, h.approve(c, dare, d.PublicKey()))
		},
		"cancel": func(h *harness, c, _ solana.PrivateKey, dare solana.PublicKey) {
			require.NoError(h.t, h.cancel(c, dare))
		},
		"expire active": func(h *harness, c, d solana.PrivateKey, dare solana.PublicKey) {
			require.NoError(h.t, h.accept(d, dare))
			h.advance(25 * time.Hour)
			require.NoError(h.t, h.expire(d, dare, c.PublicKey(), c.PublicKey()))
		},
		"expire rejected": func(h *harness, c, d solana.PrivateKey, dare solana.PublicKey) {
			require.NoError(h.t, h.accept(d, dare))
			require.NoError(h.t, h.submitProof(d, dare, dareme_protocol.HashProof("x")))
			require.NoError(h.t, h.reject(c, dare))
			h.advance(25 * time.Hour)
			require.NoError(h.t, h.expire(c, dare, c.PublicKey(), c.PublicKey()))
		},
	}

	for name, run := range paths {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			challenger := h.funded()
			daree := h.funded()
			total := h.rt.Ledger().TotalLamports()

			dare := h.mustCreate(challenger, h.directArgs(nil))
			run(h, challenger, daree, dare)

			assert.Zero(t, h.balance(h.vault(dare)))
			assert.True(t, h.dare(dare).Status.IsTerminal())
			assert.Equal(t, total, h.rt.Ledger().TotalLamports())

			// Funds left only towards the two participants.
			gained := h.balance(challenger.PublicKey()) + h.balance(daree.PublicKey())
			rents := dareRent + statsRent
			if h.stats(daree.PublicKey()).DaresAccepted > 0 {
				rents += statsRent
			}
			assert.Equal(t, 2*startingSol-rents, gained)
		})
	}
}

func TestAuthorizationConstraints(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	daree := h.funded()
	dare := h.mustCreate(challenger, h.directArgs(nil))
	require.NoError(t, h.accept(daree, dare))
	require.NoError(t, h.submitProof(daree, dare, dareme_protocol.HashProof("x")))

	t.Run("reject by outsider", func(t *testing.T) {
		assert.ErrorIs(t, h.reject(daree, dare), dareme_protocol.ErrConstraintHasOne)
	})

	t.Run("approve to wrong daree", func(t *testing.T) {
		outsider := h.funded()
		assert.ErrorIs(t, h.approve(challenger, dare, outsider.PublicKey()), dareme_protocol.ErrUnauthorizedDaree)
	})

	t.Run("approve from substituted vault", func(t *testing.T) {
		decoy := h.funded().PublicKey()
		ix, err := dareme_protocol.NewApproveDareInstruction(challenger.PublicKey(), dare, decoy, daree.PublicKey(), h.statsKey(daree.PublicKey()))
		_, err = h.submit([]solana.PrivateKey{challenger}, ix, err)
		assert.ErrorIs(t, err, dareme_protocol.ErrConstraintSeeds)
		assert.Equal(t, startingSol, h.balance(decoy))
	})

	t.Run("challenger not signing", func(t *testing.T) {
		payer := h.funded()
		args := h.directArgs(nil)
		accounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), challenger.PublicKey(), args.DareID)
		require.NoError(t, err)
		ix, err := dareme_protocol.BuildInstruction(h.rt.ProgramID(), args, []*solana.AccountMeta{
			solana.NewAccountMeta(challenger.PublicKey(), true, false),
			solana.NewAccountMeta(accounts.Dare, true, false),
			solana.NewAccountMeta(accounts.Vault, true, false),
			solana.NewAccountMeta(h.statsKey(challenger.PublicKey()), true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		})
		_, err = h.submit([]solana.PrivateKey{payer}, ix, err)
		assert.ErrorIs(t, err, dareme_protocol.ErrConstraintSigner)
	})

	t.Run("dare account not owned by the program", func(t *testing.T) {
		fake := h.funded()
		err := h.accept(h.funded(), fake.PublicKey())
		assert.ErrorIs(t, err, dareme_protocol.ErrAccountNotInitialized)
	})

	assert.Equal(t, dareme_protocol.DareStatus_ProofSubmitted, h.dare(dare).Status)
	assert.Equal(t, oneSol, h.balance(h.vault(dare)))
}

func TestTransactionIsAtomic(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	key := challenger.PublicKey()

	good := h.directArgs(nil)
	bad := h.directArgs(nil)
	bad.Amount = 0

	goodAccounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), key, good.DareID)
	require.NoError(t, err)
	badAccounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), key, bad.DareID)
	require.NoError(t, err)

	first, err := dareme_protocol.NewCreateDareInstruction(good, key, goodAccounts.Dare, goodAccounts.Vault, h.statsKey(key))
	require.NoError(t, err)
	second, err := dareme_protocol.NewCreateDareInstruction(bad, key, badAccounts.Dare, badAccounts.Vault, h.statsKey(key))
	require.NoError(t, err)

	receipt, err := h.rt.Submit(context.Background(), []solana.PrivateKey{challenger}, first, second)
	require.ErrorIs(t, err, dareme_protocol.ErrInvalidAmount)
	require.NotNil(t, receipt)
	assert.ErrorIs(t, receipt.Err, dareme_protocol.ErrInvalidAmount)
	assert.Contains(t, receipt.Logs, "Program log: Instruction: CreateDare")

	assert.Equal(t, startingSol, h.balance(key))
	_, exists := h.rt.Ledger().Account(goodAccounts.Dare)
	assert.False(t, exists)
	_, exists = h.rt.Ledger().Account(h.statsKey(key))
	assert.False(t, exists)
	assert.Zero(t, h.rt.Slot())
}

func TestSignatureVerification(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	args := h.directArgs(nil)
	accounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), challenger.PublicKey(), args.DareID)
	require.NoError(t, err)
	ix, err := dareme_protocol.NewCreateDareInstruction(args, challenger.PublicKey(), accounts.Dare, accounts.Vault, h.statsKey(challenger.PublicKey()))
	require.NoError(t, err)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, h.rt.LatestBlockhash(), solana.TransactionPayer(challenger.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(challenger.PublicKey()) {
			return &challenger
		}
		return nil
	})
	require.NoError(t, err)

	forged := *tx
	forged.Signatures = append([]solana.Signature(nil), tx.Signatures...)
	forged.Signatures[0][0] ^= 0xff
	_, err = h.rt.Process(context.Background(), &forged)
	assert.ErrorIs(t, err, dareme_protocol.ErrMissingSignature)

	unsigned := *tx
	unsigned.Signatures = nil
	_, err = h.rt.Process(context.Background(), &unsigned)
	assert.ErrorIs(t, err, dareme_protocol.ErrMissingSignature)

	sim, err := h.rt.Simulate(context.Background(), tx)
	require.NoError(t, err)
	assert.NotEmpty(t, sim.Logs)
	_, exists := h.rt.Ledger().Account(accounts.Dare)
	assert.False(t, exists)

	receipt, err := h.rt.Process(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], receipt.Signature)
	assert.Equal(t, uint64(1), receipt.Slot)
	assert.True(t, containsLog(receipt.Logs, "Dare created"))

	_, err = h.rt.Process(context.Background(), tx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestForeignProgramRejected(t *testing.T) {
	h := newHarness(t)
	payer := h.funded()
	other := solana.NewWallet().PublicKey()

	ix := solana.NewInstruction(other, []*solana.AccountMeta{solana.NewAccountMeta(payer.PublicKey(), true, true)}, []byte{1})
	_, err := h.rt.Submit(context.Background(), []solana.PrivateKey{payer}, ix)
	assert.ErrorIs(t, err, dareme_protocol.ErrInvalidProgramID)
}

func TestCommunityVoteIsStored(t *testing.T) {
	h := newHarness(t)
	challenger := h.funded()
	args := h.bountyArgs()
	args.WinnerSelection = dareme_protocol.WinnerSelection_CommunityVote
	dare := h.mustCreate(challenger, args)
	assert.Equal(t, dareme_protocol.WinnerSelection_CommunityVote, h.dare(dare).WinnerSelection)
}

func containsLog(logs []string, fragment string) bool {
	for _, l := range logs {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}
