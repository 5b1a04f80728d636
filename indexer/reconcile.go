package indexer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

// Outcome says what Apply did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomePending   Outcome = "pending"
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored marks an event older than the state already projected.
	OutcomeIgnored Outcome = "ignored"
)

const (
	reasonUnknownDare = "dare not indexed yet"
	reasonOutOfOrder  = "waiting for an earlier transition"
)

var ErrInvalidRegistration = errors.New("indexer: invalid dare registration")

// Reconciler projects program events onto dare records. The chain is the
// source of truth; the store only ever converges towards it.
type Reconciler struct {
	mu        sync.Mutex
	store     Store
	programID solana.PublicKey
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.logger = l } }

func WithMetrics(m *Metrics) Option { return func(r *Reconciler) { r.metrics = m } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func WithProgramID(id solana.PublicKey) Option { return func(r *Reconciler) { r.programID = id } }

func NewReconciler(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		programID: dareme_protocol.ProgramID,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return r
}

// ProgramID is the program whose events the reconciler accepts.
func (r *Reconciler) ProgramID() solana.PublicKey { return r.programID }

// Apply records one event. Redelivered events are reported as duplicates;
// events that cannot be applied yet are queued and replayed once the dare
// record catches up.
func (r *Reconciler) Apply(ctx context.Context, ev dareme_protocol.DareEvent) (Outcome, error) {
	if len(ev.Accounts) <= dareme_protocol.DareAccountIndex {
		return "", fmt.Errorf("event %s has no dare account", ev.Key())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, err := r.apply(ctx, &ev)
	if err != nil {
		r.metrics.Events.WithLabelValues(ev.Kind.Name(), "error").Inc()
		return "", err
	}
	r.metrics.Events.WithLabelValues(ev.Kind.Name(), string(outcome)).Inc()
	r.refreshPending(ctx)
	return outcome, nil
}

func (r *Reconciler) apply(ctx context.Context, ev *dareme_protocol.DareEvent) (Outcome, error) {
	key := ev.Key()
	seen, err := r.store.Seen(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check event %s: %w", key, err)
	}
	if seen {
		return OutcomeDuplicate, nil
	}

	pda := ev.Dare().String()
	rec, err := r.store.GetDare(ctx, pda)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if ev.Kind != dareme_protocol.InstructionKind_CreateDare {
			return r.queue(ctx, ev, reasonUnknownDare)
		}
		rec = &storage.DareRecord{PDA: pda}
	case err != nil:
		return "", fmt.Errorf("failed to load dare %s: %w", pda, err)
	}

	switch outcome := transition(rec, ev); outcome {
	case OutcomePending:
		return r.queue(ctx, ev, reasonOutOfOrder)
	case OutcomeIgnored:
		r.logger.Info("ignoring stale event", "dare", pda, "kind", ev.Kind.Name(), "slot", ev.Slot, "status", rec.Status.String())
		if err := r.store.MarkSeen(ctx, key); err != nil {
			return "", fmt.Errorf("failed to mark event %s: %w", key, err)
		}
		return OutcomeIgnored, nil
	}

	if err := r.commit(ctx, rec, ev); err != nil {
		return "", err
	}
	r.logger.Info("dare updated", "dare", pda, "kind", ev.Kind.Name(), "status", rec.Status.String(), "slot", ev.Slot)

	if err := r.drain(ctx, pda); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) queue(ctx context.Context, ev *dareme_protocol.DareEvent, reason string) (Outcome, error) {
	pe := storage.PendingEvent{Event: *ev, Reason: reason, ReceivedAt: r.now().UTC()}
	if err := r.store.AddPending(ctx, pe); err != nil {
		return "", fmt.Errorf("failed to queue event %s: %w", ev.Key(), err)
	}
	r.logger.Info("event queued", "dare", ev.Dare().String(), "kind", ev.Kind.Name(), "reason", reason)
	return OutcomePending, nil
}

// commit persists an applied transition together with its notifications.
func (r *Reconciler) commit(ctx context.Context, rec *storage.DareRecord, ev *dareme_protocol.DareEvent) error {
	if err := r.store.PutDare(ctx, rec); err != nil {
		return fmt.Errorf("failed to store dare %s: %w", rec.PDA, err)
	}
	for _, n := range notificationsFor(rec, ev.Kind, r.now().UTC()) {
		if err := r.store.AddNotification(ctx, n); err != nil {
			return fmt.Errorf("failed to store notification for %s: %w", n.Wallet, err)
		}
	}
	if err := r.store.MarkSeen(ctx, ev.Key()); err != nil {
		return fmt.Errorf("failed to mark event %s: %w", ev.Key(), err)
	}
	return nil
}

// drain replays queued events of one dare until none of them makes progress.
func (r *Reconciler) drain(ctx context.Context, pda string) error {
	for {
		pending, err := r.store.PendingFor(ctx, pda)
		if err != nil {
			return fmt.Errorf("failed to list pending events for %s: %w", pda, err)
		}
		if len(pending) == 0 {
			return nil
		}
		rec, err := r.store.GetDare(ctx, pda)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load dare %s: %w", pda, err)
		}

		progressed := false
		for _, pe := range pending {
			ev := pe.Event
			seen, err := r.store.Seen(ctx, ev.Key())
			if err != nil {
				return fmt.Errorf("failed to check event %s: %w", ev.Key(), err)
			}
			if !seen {
				outcome := transition(rec, &ev)
				if outcome == OutcomePending {
					continue
				}
				if outcome == OutcomeApplied {
					if err := r.commit(ctx, rec, &ev); err != nil {
						return err
					}
				} else if err := r.store.MarkSeen(ctx, ev.Key()); err != nil {
					return fmt.Errorf("failed to mark event %s: %w", ev.Key(), err)
				}
				r.metrics.Events.WithLabelValues(ev.Kind.Name(), "replayed").Inc()
				r.logger.Info("replayed queued event", "dare", pda, "kind", ev.Kind.Name(), "outcome", string(outcome))
			}
			if err := r.store.DeletePending(ctx, pda, ev.Key()); err != nil {
				return fmt.Errorf("failed to dequeue event %s: %w", ev.Key(), err)
			}
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
}

func (r *Reconciler) refreshPending(ctx context.Context) {
	pending, err := r.store.ListPending(ctx)
	if err != nil {
		r.logger.Warn("failed to count pending events", "err", err)
		return
	}
	r.metrics.Pending.Set(float64(len(pending)))
}

// transition applies ev to rec when rec is in a status the instruction
// accepts. It leaves rec untouched otherwise.
func transition(rec *storage.DareRecord, ev *dareme_protocol.DareEvent) Outcome {
	if ev.Kind == dareme_protocol.InstructionKind_CreateDare {
		mergeCreate(rec, ev)
		stamp(rec, ev)
		return OutcomeApplied
	}

	if !acceptsFrom(rec, ev.Kind) {
		if rec.Status.IsTerminal() || ev.Slot < rec.LastSlot {
			return OutcomeIgnored
		}
		return OutcomePending
	}

	signer := ev.Signer().String()
	switch ev.Kind {
	case dareme_protocol.InstructionKind_AcceptDare:
		rec.Daree = signer
		rec.Status = dareme_protocol.DareStatus_Active
	case dareme_protocol.InstructionKind_SubmitProof:
		if rec.Daree == "" {
			rec.Daree = signer
		}
		if ev.ProofHash != nil {
			rec.ProofHash = hex.EncodeToString(ev.ProofHash[:])
		}
		rec.Status = dareme_protocol.DareStatus_ProofSubmitted
	case dareme_protocol.InstructionKind_ApproveDare:
		rec.Status = dareme_protocol.DareStatus_Completed
	case dareme_protocol.InstructionKind_RejectDare:
		rec.ProofHash = ""
		rec.Status = dareme_protocol.DareStatus_Rejected
	case dareme_protocol.InstructionKind_CancelDare:
		rec.Status = dareme_protocol.DareStatus_Cancelled
	case dareme_protocol.InstructionKind_RefuseDare:
		rec.Status = dareme_protocol.DareStatus_Refused
	case dareme_protocol.InstructionKind_ExpireDare:
		rec.Status = dareme_protocol.DareStatus_Expired
	}
	stamp(rec, ev)
	return OutcomeApplied
}

func acceptsFrom(rec *storage.DareRecord, kind dareme_protocol.InstructionKind) bool {
	s := rec.Status
	switch kind {
	case dareme_protocol.InstructionKind_AcceptDare,
		dareme_protocol.InstructionKind_CancelDare,
		dareme_protocol.InstructionKind_RefuseDare:
		return s == dareme_protocol.DareStatus_Created
	case dareme_protocol.InstructionKind_SubmitProof:
		if s == dareme_protocol.DareStatus_Rejected {
			return true
		}
		if rec.DareType == dareme_protocol.DareType_PublicBounty {
			return s == dareme_protocol.DareStatus_Created
		}
		return s == dareme_protocol.DareStatus_Active
	case dareme_protocol.InstructionKind_ApproveDare,
		dareme_protocol.InstructionKind_RejectDare:
		return s == dareme_protocol.DareStatus_ProofSubmitted
	case dareme_protocol.InstructionKind_ExpireDare:
		return !s.IsTerminal()
	}
	return false
}

func mergeCreate(rec *storage.DareRecord, ev *dareme_protocol.DareEvent) {
	rec.Challenger = ev.Signer().String()
	rec.CreateSignature = ev.Signature.String()
	rec.OnChain = true
	if rec.CreatedAt.IsZero() && !ev.Timestamp.IsZero() {
		rec.CreatedAt = ev.Timestamp
	}
	if c := ev.Create; c != nil {
		rec.DareID = c.DareID
		rec.Amount = c.Amount
		rec.Deadline = c.Deadline
		rec.DareType = c.DareType
		rec.WinnerSelection = c.WinnerSelection
		if c.TargetDaree != nil && rec.Daree == "" {
			rec.Daree = c.TargetDaree.String()
		}
	}
}

func stamp(rec *storage.DareRecord, ev *dareme_protocol.DareEvent) {
	rec.LastSignature = ev.Signature.String()
	if ev.Slot > rec.LastSlot {
		rec.LastSlot = ev.Slot
	}
}

// Registration is the off-chain metadata the frontend posts for a dare.
// PDA must derive from Challenger and DareID. The remaining chain fields
// seed a dare the indexer has not seen yet and never replace known values.
type Registration struct {
	PDA         string                   `json:"pda"`
	Challenger  string                   `json:"challenger"`
	DareID      uint64                   `json:"dareId"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Amount      uint64                   `json:"amount"`
	DareType    dareme_protocol.DareType `json:"dareType"`
	Deadline    int64                    `json:"deadline"`
	TargetDaree string                   `json:"targetDaree,omitempty"`
	ProofURL    string                   `json:"proofUrl,omitempty"`
}

func (reg *Registration) validate(programID solana.PublicKey) error {
	pda, err := solana.PublicKeyFromBase58(reg.PDA)
	if err != nil {
		return fmt.Errorf("%w: pda: %w", ErrInvalidRegistration, err)
	}
	if reg.TargetDaree != "" {
		if _, err := solana.PublicKeyFromBase58(reg.TargetDaree); err != nil {
			return fmt.Errorf("%w: target daree: %w", ErrInvalidRegistration, err)
		}
	}
	if reg.Challenger == "" {
		return fmt.Errorf("%w: challenger is required", ErrInvalidRegistration)
	}
	challenger, err := solana.PublicKeyFromBase58(reg.Challenger)
	if err != nil {
		return fmt.Errorf("%w: challenger: %w", ErrInvalidRegistration, err)
	}
	want, _, err := dareme_protocol.FindDarePDAForProgram(programID, challenger, reg.DareID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}
	if !want.Equals(pda) {
		return fmt.Errorf("%w: pda does not match challenger and dare id", ErrInvalidRegistration)
	}
	return nil
}

// seed fills chain fields of an unindexed record from reg. The first
// registration fixes the dare type; later ones only fill gaps.
func seed(rec *storage.DareRecord, reg *Registration) {
	if rec.Challenger == "" {
		rec.Challenger = reg.Challenger
		rec.DareID = reg.DareID
		rec.DareType = reg.DareType
	}
	if rec.Amount == 0 {
		rec.Amount = reg.Amount
	}
	if rec.Deadline == 0 {
		rec.Deadline = reg.Deadline
	}
	if rec.Daree == "" {
		rec.Daree = reg.TargetDaree
	}
}

// Register stores frontend metadata for a dare and replays any events that
// were waiting for it.
func (r *Reconciler) Register(ctx context.Context, reg Registration) (*storage.DareRecord, error) {
	if err := reg.validate(r.programID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.GetDare(ctx, reg.PDA)
	if errors.Is(err, storage.ErrNotFound) {
		rec = &storage.DareRecord{PDA: reg.PDA, Status: dareme_protocol.DareStatus_Created}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load dare %s: %w", reg.PDA, err)
	}

	if reg.Title != "" {
		rec.Title = reg.Title
	}
	if reg.Description != "" {
		rec.Description = reg.Description
	}
	if reg.ProofURL != "" {
		rec.ProofURL = reg.ProofURL
	}
	if !rec.OnChain {
		seed(rec, &reg)
	}

	if err := r.store.PutDare(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store dare %s: %w", reg.PDA, err)
	}
	r.logger.Info("dare registered", "dare", reg.PDA, "on_chain", rec.OnChain)

	if err := r.drain(ctx, reg.PDA); err != nil {
		return nil, err
	}
	r.refreshPending(ctx)
	return r.store.GetDare(ctx, reg.PDA)
}
