package indexer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	dareme_protocol "dareme-cli/solana"
)

// HeliusTransaction is the subset of an enhanced-transaction webhook item we read.
type HeliusTransaction struct {
	Signature        string              `json:"signature"`
	Slot             uint64              `json:"slot"`
	Timestamp        int64               `json:"timestamp"`
	TransactionError json.RawMessage     `json:"transactionError,omitempty"`
	Instructions     []HeliusInstruction `json:"instructions"`
}

// HeliusInstruction is one top-level instruction. Data is base58.
type HeliusInstruction struct {
	ProgramID string   `json:"programId"`
	Accounts  []string `json:"accounts"`
	Data      string   `json:"data"`
}

// Failed reports whether the transaction was rejected by the cluster.
func (tx *HeliusTransaction) Failed() bool {
	raw := bytes.TrimSpace(tx.TransactionError)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

var errEmptyPayload = errors.New("indexer: empty webhook payload")

// ParseWebhookPayload accepts either a JSON array of transactions or a single object.
func ParseWebhookPayload(body []byte) ([]HeliusTransaction, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errEmptyPayload
	}
	if body[0] == '[' {
		var txs []HeliusTransaction
		if err := json.Unmarshal(body, &txs); err != nil {
			return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
		}
		return txs, nil
	}
	var tx HeliusTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return []HeliusTransaction{tx}, nil
}

// DecodeHelius extracts the program's instructions from tx, decoding the raw
// instruction data. Failed transactions yield nothing. Instructions that do
// not decode are counted in skipped.
func DecodeHelius(programID solana.PublicKey, tx *HeliusTransaction) (events []dareme_protocol.DareEvent, skipped int, err error) {
	if tx.Failed() {
		return nil, 0, nil
	}
	sig, err := solana.SignatureFromBase58(tx.Signature)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid signature %q: %w", tx.Signature, err)
	}
	var blockTime time.Time
	if tx.Timestamp > 0 {
		blockTime = time.Unix(tx.Timestamp, 0).UTC()
	}

	programStr := programID.String()
	for i, ix := range tx.Instructions {
		if ix.ProgramID != programStr {
			continue
		}
		event, err := decodeInstruction(ix)
		if err != nil {
			skipped++
			continue
		}
		event.Signature = sig
		event.Index = i
		event.Slot = tx.Slot
		event.Timestamp = blockTime
		events = append(events, *event)
	}
	return events, skipped, nil
}

func decodeInstruction(ix HeliusInstruction) (*dareme_protocol.DareEvent, error) {
	data, err := base58.Decode(ix.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid instruction data: %w", err)
	}
	accounts := make([]solana.PublicKey, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		key, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", a, err)
		}
		accounts = append(accounts, key)
	}
	return dareme_protocol.DecodeEvent(data, accounts)
}
