package indexer

import (
	"encoding/hex"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

func TestReconcileDirectLifecycle(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	target := f.daree

	assert.Equal(t, OutcomeApplied, f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1)))
	rec := f.record(dare)
	assert.True(t, rec.OnChain)
	assert.Equal(t, dareme_protocol.DareStatus_Created, rec.Status)
	assert.Equal(t, f.challenger.String(), rec.Challenger)
	assert.Equal(t, f.daree.String(), rec.Daree)
	assert.Equal(t, oneSol, rec.Amount)
	assert.Equal(t, id, rec.DareID)

	assert.Equal(t, OutcomeApplied, f.apply(f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2)))
	assert.Equal(t, dareme_protocol.DareStatus_Active, f.record(dare).Status)

	proof := f.proofEvent(f.daree, dare, 3)
	assert.Equal(t, OutcomeApplied, f.apply(proof))
	rec = f.record(dare)
	assert.Equal(t, dareme_protocol.DareStatus_ProofSubmitted, rec.Status)
	assert.Equal(t, hex.EncodeToString(proof.ProofHash[:]), rec.ProofHash)

	approve := f.event(dareme_protocol.InstructionKind_ApproveDare, f.challenger, dare, 4)
	assert.Equal(t, OutcomeApplied, f.apply(approve))
	rec = f.record(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Completed, rec.Status)
	assert.Equal(t, uint64(4), rec.LastSlot)
	assert.Equal(t, approve.Signature.String(), rec.LastSignature)

	challengerNotes := f.notifications(f.challenger)
	require.Len(t, challengerNotes, 2)
	kinds := []dareme_protocol.InstructionKind{challengerNotes[0].Kind, challengerNotes[1].Kind}
	assert.ElementsMatch(t, []dareme_protocol.InstructionKind{
		dareme_protocol.InstructionKind_AcceptDare,
		dareme_protocol.InstructionKind_SubmitProof,
	}, kinds)

	dareeNotes := f.notifications(f.daree)
	require.Len(t, dareeNotes, 1)
	assert.Equal(t, dareme_protocol.InstructionKind_ApproveDare, dareeNotes[0].Kind)
	assert.Contains(t, dareeNotes[0].Message, "1 SOL earned")
	assert.NotEmpty(t, dareeNotes[0].ID)
	assert.Equal(t, dare.String(), dareeNotes[0].Dare)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Events.WithLabelValues("approve_dare", "applied")))
}

func TestReconcileDeduplicates(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	create := f.createEvent(dare, id, dareme_protocol.DareType_PublicBounty, nil, 1)

	assert.Equal(t, OutcomeApplied, f.apply(create))
	assert.Equal(t, OutcomeDuplicate, f.apply(create))

	accept := f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2)
	// Same signature, different instruction index is a different event.
	second := accept
	second.Index = 1
	second.Kind = dareme_protocol.InstructionKind_CancelDare
	second.Accounts = []solana.PublicKey{f.challenger, dare}

	assert.Equal(t, OutcomeApplied, f.apply(second))
	assert.Equal(t, dareme_protocol.DareStatus_Cancelled, f.record(dare).Status)
	assert.Empty(t, f.notifications(f.daree), "no daree to tell about an open dare")
}

func TestReconcileEventBeforeCreate(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()

	accept := f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2)
	assert.Equal(t, OutcomePending, f.apply(accept))
	pending := f.pending()
	require.Len(t, pending, 1)
	assert.Equal(t, reasonUnknownDare, pending[0].Reason)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Pending))

	// Redelivery of a queued event stays queued once.
	assert.Equal(t, OutcomePending, f.apply(accept))
	assert.Len(t, f.pending(), 1)

	target := f.daree
	assert.Equal(t, OutcomeApplied, f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1)))
	rec := f.record(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Active, rec.Status)
	assert.Equal(t, uint64(2), rec.LastSlot)
	assert.Empty(t, f.pending())
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.Pending))

	assert.Equal(t, OutcomeDuplicate, f.apply(accept))
}

func TestReconcileOutOfOrderTransitions(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	target := f.daree

	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1))
	assert.Equal(t, OutcomePending, f.apply(f.event(dareme_protocol.InstructionKind_ApproveDare, f.challenger, dare, 4)))
	assert.Equal(t, OutcomePending, f.apply(f.proofEvent(f.daree, dare, 3)))
	assert.Len(t, f.pending(), 2)
	assert.Equal(t, dareme_protocol.DareStatus_Created, f.record(dare).Status)

	assert.Equal(t, OutcomeApplied, f.apply(f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2)))
	rec := f.record(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Completed, rec.Status)
	assert.Equal(t, uint64(4), rec.LastSlot)
	assert.Empty(t, f.pending())
	assert.Len(t, f.notifications(f.daree), 1)
}

func TestReconcileIgnoresStaleEvents(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	target := f.daree

	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1))
	f.apply(f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2))
	f.apply(f.event(dareme_protocol.InstructionKind_ExpireDare, f.challenger, dare, 9))
	assert.Equal(t, dareme_protocol.DareStatus_Expired, f.record(dare).Status)

	late := f.proofEvent(f.daree, dare, 5)
	assert.Equal(t, OutcomeIgnored, f.apply(late))
	assert.Equal(t, dareme_protocol.DareStatus_Expired, f.record(dare).Status)
	assert.Empty(t, f.pending())
	assert.Equal(t, OutcomeDuplicate, f.apply(late))

	// Expiry tells both parties.
	assert.Len(t, f.notifications(f.daree), 1)
	assert.Len(t, f.notifications(f.challenger), 2)
}

func TestReconcileBountyClaimAndReject(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	hunter := solana.NewWallet().PublicKey()

	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_PublicBounty, nil, 1))
	assert.Empty(t, f.record(dare).Daree)

	assert.Equal(t, OutcomeApplied, f.apply(f.proofEvent(hunter, dare, 2)))
	rec := f.record(dare)
	assert.Equal(t, hunter.String(), rec.Daree)
	assert.Equal(t, dareme_protocol.DareStatus_ProofSubmitted, rec.Status)

	assert.Equal(t, OutcomeApplied, f.apply(f.event(dareme_protocol.InstructionKind_RejectDare, f.challenger, dare, 3)))
	rec = f.record(dare)
	assert.Equal(t, dareme_protocol.DareStatus_Rejected, rec.Status)
	assert.Empty(t, rec.ProofHash)

	assert.Equal(t, OutcomeApplied, f.apply(f.proofEvent(hunter, dare, 4)))
	assert.Equal(t, dareme_protocol.DareStatus_ProofSubmitted, f.record(dare).Status)

	notes := f.notifications(hunter)
	require.Len(t, notes, 1)
	assert.Equal(t, dareme_protocol.InstructionKind_RejectDare, notes[0].Kind)
}

func TestReconcileRefuse(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	target := f.daree

	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1))
	assert.Equal(t, OutcomeApplied, f.apply(f.event(dareme_protocol.InstructionKind_RefuseDare, f.daree, dare, 2)))
	assert.Equal(t, dareme_protocol.DareStatus_Refused, f.record(dare).Status)

	notes := f.notifications(f.challenger)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "refused")
}

func TestReconcileRejectsEventWithoutDare(t *testing.T) {
	f := newFixture(t)
	ev := f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, solana.PublicKey{}, 1)
	ev.Accounts = ev.Accounts[:1]
	_, err := f.rec.Apply(f.ctx, ev)
	assert.Error(t, err)
}

func TestRegisterBeforeCreate(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()

	rec, err := f.rec.Register(f.ctx, Registration{
		PDA:         dare.String(),
		Challenger:  f.challenger.String(),
		DareID:      id,
		Title:       "Eat a lemon",
		Description: "whole, peel included",
		Amount:      oneSol,
		TargetDaree: f.daree.String(),
	})
	require.NoError(t, err)
	assert.False(t, rec.OnChain)
	assert.Equal(t, dareme_protocol.DareStatus_Created, rec.Status)
	assert.Equal(t, f.daree.String(), rec.Daree)

	f.apply(f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2))
	target := f.daree
	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_DirectDare, &target, 1))

	rec = f.record(dare)
	assert.True(t, rec.OnChain)
	assert.Equal(t, "Eat a lemon", rec.Title)
	assert.Equal(t, dareme_protocol.DareStatus_Active, rec.Status, "late create keeps the projected status")

	notes := f.notifications(f.challenger)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, `"Eat a lemon"`)
}

func TestRegisterReplaysPending(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()

	assert.Equal(t, OutcomePending, f.apply(f.event(dareme_protocol.InstructionKind_AcceptDare, f.daree, dare, 2)))

	rec, err := f.rec.Register(f.ctx, Registration{PDA: dare.String(), Challenger: f.challenger.String(), DareID: id, Title: "Sing"})
	require.NoError(t, err)
	assert.Equal(t, dareme_protocol.DareStatus_Active, rec.Status)
	assert.Equal(t, f.daree.String(), rec.Daree)
	assert.Empty(t, f.pending())
}

func TestRegisterKeepsChainFields(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()
	f.apply(f.createEvent(dare, id, dareme_protocol.DareType_PublicBounty, nil, 1))

	rec, err := f.rec.Register(f.ctx, Registration{PDA: dare.String(), Challenger: f.challenger.String(), DareID: id, Amount: 7, Title: "Juggle", ProofURL: "https://example.com/v"})
	require.NoError(t, err)
	assert.Equal(t, oneSol, rec.Amount)
	assert.Equal(t, dareme_protocol.DareType_PublicBounty, rec.DareType)
	assert.Equal(t, "Juggle", rec.Title)
	assert.Equal(t, "https://example.com/v", rec.ProofURL)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()

	tests := []struct {
		name string
		reg  Registration
	}{
		{"bad pda", Registration{PDA: "not-a-key"}},
		{"bad challenger", Registration{PDA: dare.String(), Challenger: "nope"}},
		{"pda mismatch", Registration{PDA: dare.String(), Challenger: f.challenger.String(), DareID: id + 1}},
		{"bad target", Registration{PDA: dare.String(), Challenger: f.challenger.String(), DareID: id, TargetDaree: "nope"}},
		{"missing challenger", Registration{PDA: dare.String(), Title: "anonymous"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rec.Register(f.ctx, tt.reg)
			assert.ErrorIs(t, err, ErrInvalidRegistration)
		})
	}

	_, err := f.store.GetDare(f.ctx, dare.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRegisterDoesNotResetSeededFields(t *testing.T) {
	f := newFixture(t)
	dare, id := f.newDare()

	_, err := f.rec.Register(f.ctx, Registration{
		PDA:        dare.String(),
		Challenger: f.challenger.String(),
		DareID:     id,
		Title:      "Bounty: backflip",
		Amount:     oneSol,
		DareType:   dareme_protocol.DareType_PublicBounty,
		Deadline:   testNow.Unix() + 3600,
	})
	require.NoError(t, err)

	_, err = f.rec.Register(f.ctx, Registration{PDA: dare.String(), Title: "renamed"})
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	rec, err := f.rec.Register(f.ctx, Registration{PDA: dare.String(), Challenger: f.challenger.String(), DareID: id, Description: "on grass"})
	require.NoError(t, err)
	assert.Equal(t, "Bounty: backflip", rec.Title)
	assert.Equal(t, "on grass", rec.Description)
	assert.Equal(t, f.challenger.String(), rec.Challenger)
	assert.Equal(t, oneSol, rec.Amount)
	assert.Equal(t, testNow.Unix()+3600, rec.Deadline)
	assert.Equal(t, dareme_protocol.DareType_PublicBounty, rec.DareType)

	hunter := solana.NewWallet().PublicKey()
	assert.Equal(t, OutcomeApplied, f.apply(f.proofEvent(hunter, dare, 2)))
	assert.Equal(t, hunter.String(), f.record(dare).Daree)
}
