package storage

import (
	"time"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// Wallet is a named keypair profile.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
}

// DareRecord is the off-chain projection of one dare. Title, Description and
// ProofURL come from the frontend; everything else mirrors the chain.
type DareRecord struct {
	PDA             string                          `json:"pda"`
	DareID          uint64                          `json:"dareId"`
	Challenger      string                          `json:"challenger"`
	Daree           string                          `json:"daree,omitempty"`
	Title           string                          `json:"title,omitempty"`
	Description     string                          `json:"description,omitempty"`
	Amount          uint64                          `json:"amount"`
	DareType        dareme_protocol.DareType        `json:"dareType"`
	WinnerSelection dareme_protocol.WinnerSelection `json:"winnerSelection"`
	Status          dareme_protocol.DareStatus      `json:"status"`
	Deadline        int64                           `json:"deadline"`
	ProofHash       string                          `json:"proofHash,omitempty"`
	ProofURL        string                          `json:"proofUrl,omitempty"`
	CreateSignature string                          `json:"createSignature,omitempty"`
	LastSignature   string                          `json:"lastSignature,omitempty"`
	LastSlot        uint64                          `json:"lastSlot"`
	// OnChain is false while the record only carries frontend metadata.
	OnChain   bool      `json:"onChain"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PendingEvent is an event that arrived before the dare it refers to.
type PendingEvent struct {
	Event      dareme_protocol.DareEvent `json:"event"`
	Reason     string                    `json:"reason"`
	ReceivedAt time.Time                 `json:"receivedAt"`
}

// Notification tells a wallet that one of its dares changed.
type Notification struct {
	ID        string                          `json:"id"`
	Wallet    string                          `json:"wallet"`
	Dare      string                          `json:"dare"`
	Kind      dareme_protocol.InstructionKind `json:"kind"`
	Message   string                          `json:"message"`
	Read      bool                            `json:"read"`
	CreatedAt time.Time                       `json:"createdAt"`
}
