package dareme_protocol

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// DareEvent is one program instruction recovered from a confirmed transaction.
// It is decoded from raw instruction data, never from log messages.
type DareEvent struct {
	Signature solana.Signature   `json:"signature"`
	Index     int                `json:"index"`
	Slot      uint64             `json:"slot"`
	Timestamp time.Time          `json:"timestamp"`
	Kind      InstructionKind    `json:"kind"`
	Accounts  []solana.PublicKey `json:"accounts"`
	Create    *CreateDare        `json:"create,omitempty"`
	ProofHash *[32]byte          `json:"proofHash,omitempty"`
}

// Signer is the first account of every instruction.
func (e *DareEvent) Signer() solana.PublicKey {
	return e.Accounts[SignerAccountIndex]
}

// Dare is the second account of every instruction.
func (e *DareEvent) Dare() solana.PublicKey {
	return e.Accounts[DareAccountIndex]
}

// Account returns the account bound to name in the instruction's account list.
func (e *DareEvent) Account(name string) (solana.PublicKey, bool) {
	for i, n := range instructionTable[e.Kind].accounts {
		if n == name && i < len(e.Accounts) {
			return e.Accounts[i], true
		}
	}
	return solana.PublicKey{}, false
}

// Key identifies the event across redeliveries.
func (e *DareEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.Signature, e.Index)
}

// DecodeEvent turns raw instruction data and its resolved account list into an event.
func DecodeEvent(data []byte, accounts []solana.PublicKey) (*DareEvent, error) {
	ix, err := DecodeInstructionData(data)
	if err != nil {
		return nil, err
	}
	kind := ix.Kind()
	if want := len(instructionTable[kind].accounts); len(accounts) < want {
		return nil, NewProgramError(ErrCodeAccountNotEnoughKeys, fmt.Sprintf("%s: %d of %d accounts", kind, len(accounts), want))
	}

	event := &DareEvent{
		Kind:     kind,
		Accounts: append([]solana.PublicKey(nil), accounts...),
	}
	switch v := ix.(type) {
	case CreateDare:
		event.Create = &v
	case SubmitProof:
		proof := v.ProofHash
		event.ProofHash = &proof
	}
	return event, nil
}

// DecodeTransactionEvents extracts every instruction addressed to programID.
// Instructions that do not decode are skipped.
func DecodeTransactionEvents(programID solana.PublicKey, tx *solana.Transaction, slot uint64, blockTime time.Time) []DareEvent {
	if tx == nil {
		return nil
	}
	var signature solana.Signature
	if len(tx.Signatures) > 0 {
		signature = tx.Signatures[0]
	}

	keys := tx.Message.AccountKeys
	var events []DareEvent
	for i, instr := range tx.Message.Instructions {
		programIdx := int(instr.ProgramIDIndex)
		if programIdx >= len(keys) || !keys[programIdx].Equals(programID) {
			continue
		}

		accounts := make([]solana.PublicKey, 0, len(instr.Accounts))
		resolved := true
		for _, idx := range instr.Accounts {
			if int(idx) >= len(keys) {
				resolved = false
				break
			}
			accounts = append(accounts, keys[idx])
		}
		if !resolved {
			continue
		}

		event, err := DecodeEvent(instr.Data, accounts)
		if err != nil {
			continue
		}
		event.Signature = signature
		event.Index = i
		event.Slot = slot
		event.Timestamp = blockTime
		events = append(events, *event)
	}
	return events
}

// HistoryOptions bounds a GetHistory call.
type HistoryOptions struct {
	// Limit caps the number of signatures fetched. Zero means 1000.
	Limit int
	// Until stops at (and excludes) this signature.
	Until solana.Signature
}

// GetHistory fetches the program instructions touching address, oldest first.
// Failed transactions are skipped.
func (c *Client) GetHistory(ctx context.Context, address solana.PublicKey, opts HistoryOptions) ([]DareEvent, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000 // Maximum allowed by Solana RPC
	}

	signatures, err := c.RpcClient.GetSignaturesForAddressWithOpts(
		ctx,
		address,
		&rpc.GetSignaturesForAddressOpts{
			Limit:      &limit,
			Until:      opts.Until,
			Commitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction signatures: %w", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		events []DareEvent
	)

	// Process transactions concurrently in batches
	batchSize := 10
	for i := 0; i < len(signatures); i += batchSize {
		end := i + batchSize
		if end > len(signatures) {
			end = len(signatures)
		}

		for j := i; j < end; j++ {
			if signatures[j].Err != nil {
				continue
			}
			wg.Add(1)
			go func(sigInfo *rpc.TransactionSignature) {
				defer wg.Done()

				version := uint64(0)
				tx, err := c.RpcClient.GetTransaction(
					ctx,
					sigInfo.Signature,
					&rpc.GetTransactionOpts{
						Encoding:                       solana.EncodingBase64,
						Commitment:                     rpc.CommitmentConfirmed,
						MaxSupportedTransactionVersion: &version,
					},
				)
				if err != nil {
					fmt.Printf("Warning: failed to fetch transaction %s: %v\n", sigInfo.Signature, err)
					return
				}

				decoded := eventsFromResult(tx)
				mu.Lock()
				events = append(events, decoded...)
				mu.Unlock()
			}(signatures[j])
		}

		wg.Wait()
	}

	SortEvents(events)
	return events, nil
}

func eventsFromResult(tx *rpc.GetTransactionResult) []DareEvent {
	if tx == nil || tx.Transaction == nil {
		return nil
	}
	if tx.Meta != nil && tx.Meta.Err != nil {
		return nil
	}
	parsed, err := tx.Transaction.GetTransaction()
	if err != nil {
		return nil
	}

	var blockTime time.Time
	if tx.BlockTime != nil {
		blockTime = tx.BlockTime.Time()
	}
	return DecodeTransactionEvents(ProgramID, parsed, tx.Slot, blockTime)
}

// SortEvents orders events by slot, then by position inside the transaction.
func SortEvents(events []DareEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Slot != events[j].Slot {
			return events[i].Slot < events[j].Slot
		}
		if events[i].Signature != events[j].Signature {
			return bytes.Compare(events[i].Signature[:], events[j].Signature[:]) < 0
		}
		return events[i].Index < events[j].Index
	})
}
