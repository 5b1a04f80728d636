package indexer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

const lamportsPerSol = 1_000_000_000

func dareLabel(rec *storage.DareRecord) string {
	if rec.Title != "" {
		return fmt.Sprintf("%q", rec.Title)
	}
	return fmt.Sprintf("#%d", rec.DareID)
}

// notificationsFor builds the notifications a transition produces. rec is the
// record after the transition was applied.
func notificationsFor(rec *storage.DareRecord, kind dareme_protocol.InstructionKind, now time.Time) []storage.Notification {
	label := dareLabel(rec)
	type note struct{ wallet, message string }
	var notes []note

	switch kind {
	case dareme_protocol.InstructionKind_AcceptDare:
		notes = append(notes, note{rec.Challenger, fmt.Sprintf("Someone accepted your dare %s. The clock is ticking!", label)})
	case dareme_protocol.InstructionKind_RefuseDare:
		notes = append(notes, note{rec.Challenger, fmt.Sprintf("Your dare %s was refused. Your SOL has been refunded.", label)})
	case dareme_protocol.InstructionKind_SubmitProof:
		notes = append(notes, note{rec.Challenger, fmt.Sprintf("Proof has been submitted for %s. Review it now!", label)})
	case dareme_protocol.InstructionKind_ApproveDare:
		sol := float64(rec.Amount) / lamportsPerSol
		notes = append(notes, note{rec.Daree, fmt.Sprintf("Your proof for %s was approved! %g SOL earned.", label, sol)})
	case dareme_protocol.InstructionKind_RejectDare:
		notes = append(notes, note{rec.Daree, fmt.Sprintf("Your proof for %s was rejected. You can resubmit.", label)})
	case dareme_protocol.InstructionKind_CancelDare:
		notes = append(notes, note{rec.Daree, fmt.Sprintf("The dare %s has been cancelled.", label)})
	case dareme_protocol.InstructionKind_ExpireDare:
		notes = append(notes,
			note{rec.Challenger, fmt.Sprintf("Your dare %s has expired.", label)},
			note{rec.Daree, fmt.Sprintf("The dare %s has expired.", label)},
		)
	}

	out := make([]storage.Notification, 0, len(notes))
	for _, n := range notes {
		if n.wallet == "" {
			continue
		}
		out = append(out, storage.Notification{
			ID:        uuid.NewString(),
			Wallet:    n.wallet,
			Dare:      rec.PDA,
			Kind:      kind,
			Message:   n.message,
			CreatedAt: now,
		})
	}
	return out
}
