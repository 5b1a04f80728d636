package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// HistorySource returns program events touching an address, oldest first.
// *dareme_protocol.Client satisfies it.
type HistorySource interface {
	GetHistory(ctx context.Context, address solana.PublicKey, opts dareme_protocol.HistoryOptions) ([]dareme_protocol.DareEvent, error)
}

// Poller feeds the reconciler from RPC history when no webhook is configured.
type Poller struct {
	source     HistorySource
	reconciler *Reconciler
	interval   time.Duration
	logger     *slog.Logger
	last       solana.Signature
}

func NewPoller(source HistorySource, reconciler *Reconciler, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{source: source, reconciler: reconciler, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// PollOnce fetches everything newer than the last seen signature and applies it.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.source.GetHistory(ctx, p.reconciler.ProgramID(), dareme_protocol.HistoryOptions{Until: p.last})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch program history: %w", err)
	}

	applied := 0
	for _, ev := range events {
		outcome, err := p.reconciler.Apply(ctx, ev)
		if err != nil {
			return applied, err
		}
		if outcome == OutcomeApplied {
			applied++
		}
		p.last = ev.Signature
	}
	if len(events) > 0 {
		p.logger.Info("poll complete", "events", len(events), "applied", applied)
	}
	return applied, nil
}
