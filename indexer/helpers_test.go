package indexer

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

const oneSol = uint64(1_000_000_000)

var testNow = time.Unix(1_700_000_000, 0).UTC()

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *storage.ProjectionStore
	registry   *prometheus.Registry
	metrics    *Metrics
	rec        *Reconciler
	challenger solana.PublicKey
	daree      solana.PublicKey
	nextSig    uint16
	nextID     uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.OpenProjectionStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		registry:   reg,
		metrics:    metrics,
		challenger: solana.NewWallet().PublicKey(),
		daree:      solana.NewWallet().PublicKey(),
	}
	f.rec = NewReconciler(store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics),
		WithClock(func() time.Time { return testNow }),
	)
	return f
}

// newDare returns a fresh dare address derived from the fixture's challenger.
func (f *fixture) newDare() (solana.PublicKey, uint64) {
	f.nextID++
	pda, _, err := dareme_protocol.FindDarePDA(f.challenger, f.nextID)
	require.NoError(f.t, err)
	return pda, f.nextID
}

func (f *fixture) event(kind dareme_protocol.InstructionKind, signer, dare solana.PublicKey, slot uint64) dareme_protocol.DareEvent {
	f.nextSig++
	return dareme_protocol.DareEvent{
		Signature: solana.Signature{byte(f.nextSig), byte(f.nextSig >> 8), 0xda},
		Slot:      slot,
		Timestamp: testNow,
		Kind:      kind,
		Accounts:  []solana.PublicKey{signer, dare},
	}
}

func (f *fixture) createEvent(dare solana.PublicKey, id uint64, dareType dareme_protocol.DareType, target *solana.PublicKey, slot uint64) dareme_protocol.DareEvent {
	ev := f.event(dareme_protocol.InstructionKind_CreateDare, f.challenger, dare, slot)
	ev.Create = &dareme_protocol.CreateDare{
		DareID:          id,
		Amount:          oneSol,
		Deadline:        testNow.Unix() + 86400,
		DareType:        dareType,
		WinnerSelection: dareme_protocol.WinnerSelection_ChallengerSelect,
		TargetDaree:     target,
	}
	return ev
}

func (f *fixture) proofEvent(signer, dare solana.PublicKey, slot uint64) dareme_protocol.DareEvent {
	ev := f.event(dareme_protocol.InstructionKind_SubmitProof, signer, dare, slot)
	proof := dareme_protocol.HashProof("https://example.com/proof.mp4")
	ev.ProofHash = &proof
	return ev
}

func (f *fixture) apply(ev dareme_protocol.DareEvent) Outcome {
	f.t.Helper()
	outcome, err := f.rec.Apply(f.ctx, ev)
	require.NoError(f.t, err)
	return outcome
}

func (f *fixture) record(dare solana.PublicKey) *storage.DareRecord {
	f.t.Helper()
	rec, err := f.store.GetDare(f.ctx, dare.String())
	require.NoError(f.t, err)
	return rec
}

func (f *fixture) notifications(wallet solana.PublicKey) []storage.Notification {
	f.t.Helper()
	notes, err := f.store.NotificationsFor(f.ctx, wallet.String())
	require.NoError(f.t, err)
	return notes
}

func (f *fixture) pending() []storage.PendingEvent {
	f.t.Helper()
	pending, err := f.store.ListPending(f.ctx)
	require.NoError(f.t, err)
	return pending
}
