package program

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// ErrAlreadyProcessed is returned when a signature has already been committed.
var ErrAlreadyProcessed = errors.New("program: transaction already processed")

// Receipt describes the outcome of a processed or simulated transaction.
type Receipt struct {
	Signature solana.Signature
	Slot      uint64
	Logs      []string
	Err       error
}

// Runtime executes transactions addressed to the dare program against a Ledger.
// Transactions are applied one at a time and either commit fully or not at all.
type Runtime struct {
	mu        sync.Mutex
	ledger    *Ledger
	programID solana.PublicKey
	now       func() time.Time
	logger    *slog.Logger
	slot      uint64
	processed map[solana.Signature]struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock overrides the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgramID runs the program under a different address.
func WithProgramID(id solana.PublicKey) Option {
	return func(r *Runtime) { r.programID = id }
}

// NewRuntime returns a runtime over ledger. A nil ledger starts empty.
func NewRuntime(ledger *Ledger, opts ...Option) *Runtime {
	if ledger == nil {
		ledger = NewLedger()
	}
	r := &Runtime{
		ledger:    ledger,
		programID: dareme_protocol.ProgramID,
		now:       time.Now,
		logger:    slog.Default(),
		processed: make(map[solana.Signature]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ledger exposes the read side of the account state.
func (r *Runtime) Ledger() *Ledger { return r.ledger }

// ProgramID is the address the runtime executes as.
func (r *Runtime) ProgramID() solana.PublicKey { return r.programID }

// Slot is the number of committed transactions.
func (r *Runtime) Slot() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot
}

// LatestBlockhash returns a hash unique to the current slot.
func (r *Runtime) LatestBlockhash() solana.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return solana.Hash(sha256.Sum256(binary.LittleEndian.AppendUint64([]byte("dareme-slot"), r.slot)))
}

// Process executes tx and commits its effects if every instruction succeeds.
// On failure the returned receipt carries the program logs and the error.
func (r *Runtime) Process(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	return r.run(ctx, tx, true)
}

// Simulate executes tx without committing anything.
func (r *Runtime) Simulate(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	return r.run(ctx, tx, false)
}

func (r *Runtime) run(ctx context.Context, tx *solana.Transaction, commit bool) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, errors.New("program: nil transaction")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	receipt := &Receipt{Slot: r.slot}
	if len(tx.Signatures) > 0 {
		receipt.Signature = tx.Signatures[0]
	}
	if commit {
		if _, dup := r.processed[receipt.Signature]; dup {
			return nil, ErrAlreadyProcessed
		}
	}

	fail := func(err error) (*Receipt, error) {
		receipt.Err = err
		r.logger.Warn("transaction failed", "signature", receipt.Signature, "error", err)
		return receipt, err
	}

	if err := verifySignatures(tx); err != nil {
		return fail(err)
	}

	ws := newWorkingSet(r.ledger)
	now := r.now().Unix()
	for i, compiled := range tx.Message.Instructions {
		ix, inv, err := r.resolve(tx, compiled, ws, now)
		if err != nil {
			return fail(fmt.Errorf("instruction %d: %w", i, err))
		}

		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s invoke [1]", r.programID))
		err = inv.execute(ix)
		receipt.Logs = append(receipt.Logs, inv.logs...)
		if err != nil {
			receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s failed: %v", r.programID, err))
			return fail(fmt.Errorf("instruction %d: %w", i, err))
		}
		receipt.Logs = append(receipt.Logs, fmt.Sprintf("Program %s success", r.programID))
	}

	if !commit {
		return receipt, nil
	}
	ws.commit()
	r.slot++
	r.processed[receipt.Signature] = struct{}{}
	receipt.Slot = r.slot
	r.logger.Debug("transaction committed", "signature", receipt.Signature, "slot", r.slot, "instructions", len(tx.Message.Instructions))
	return receipt, nil
}

// resolve decodes a compiled instruction and binds its account indexes to
// keys and the signer/writable flags of the message header.
func (r *Runtime) resolve(tx *solana.Transaction, compiled solana.CompiledInstruction, ws *workingSet, now int64) (dareme_protocol.Instruction, *invocation, error) {
	keys := tx.Message.AccountKeys
	if int(compiled.ProgramIDIndex) >= len(keys) {
		return nil, nil, dareme_protocol.ErrAccountNotEnoughKeys
	}
	if program := keys[compiled.ProgramIDIndex]; !program.Equals(r.programID) {
		return nil, nil, dareme_protocol.NewProgramError(dareme_protocol.ErrCodeInvalidProgramID, program.String())
	}

	ix, err := dareme_protocol.DecodeInstructionData(compiled.Data)
	if err != nil {
		return nil, nil, err
	}

	refs := make([]accountRef, 0, len(compiled.Accounts))
	for _, idx := range compiled.Accounts {
		if int(idx) >= len(keys) {
			return nil, nil, dareme_protocol.ErrAccountNotEnoughKeys
		}
		refs = append(refs, accountRef{
			key:        keys[idx],
			isSigner:   isSigner(tx, int(idx)),
			isWritable: isWritable(tx, int(idx)),
		})
	}

	return ix, &invocation{
		programID: r.programID,
		kind:      ix.Kind(),
		accounts:  refs,
		ws:        ws,
		now:       now,
	}, nil
}

func isSigner(tx *solana.Transaction, i int) bool {
	return i < int(tx.Message.Header.NumRequiredSignatures)
}

func isWritable(tx *solana.Transaction, i int) bool {
	h := tx.Message.Header
	signers := int(h.NumRequiredSignatures)
	if i < signers {
		return i < signers-int(h.NumReadonlySignedAccounts)
	}
	return i < len(tx.Message.AccountKeys)-int(h.NumReadonlyUnsignedAccounts)
}

// verifySignatures checks an ed25519 signature for every required signer.
func verifySignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Signatures) != required || len(tx.Message.AccountKeys) < required {
		return dareme_protocol.NewProgramError(dareme_protocol.ErrCodeMissingSignature,
			fmt.Sprintf("%d signatures for %d required signers", len(tx.Signatures), required))
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	for i := 0; i < required; i++ {
		key := tx.Message.AccountKeys[i]
		if !tx.Signatures[i].Verify(key, msg) {
			return dareme_protocol.NewProgramError(dareme_protocol.ErrCodeMissingSignature, key.String())
		}
	}
	return nil
}

// Submit builds a transaction from instructions, signs it with signers (the
// first one pays) and processes it.
func (r *Runtime) Submit(ctx context.Context, signers []solana.PrivateKey, instructions ...solana.Instruction) (*Receipt, error) {
	if len(signers) == 0 {
		return nil, errors.New("program: no signers")
	}
	tx, err := solana.NewTransaction(
		instructions,
		r.LatestBlockhash(),
		solana.TransactionPayer(signers[0].PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return r.Process(ctx, tx)
}
