package dareme_protocol

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// InstructionKind enumerates the program's instructions.
type InstructionKind uint8

const (
	InstructionKind_CreateDare InstructionKind = iota
	InstructionKind_AcceptDare
	InstructionKind_SubmitProof
	InstructionKind_ApproveDare
	InstructionKind_RejectDare
	InstructionKind_CancelDare
	InstructionKind_RefuseDare
	InstructionKind_ExpireDare
)

// InstructionKinds lists every kind in declaration order.
var InstructionKinds = []InstructionKind{
	InstructionKind_CreateDare,
	InstructionKind_AcceptDare,
	InstructionKind_SubmitProof,
	InstructionKind_ApproveDare,
	InstructionKind_RejectDare,
	InstructionKind_CancelDare,
	InstructionKind_RefuseDare,
	InstructionKind_ExpireDare,
}

type instructionDef struct {
	name          string
	discriminator [8]byte
	accounts      []string
}

// Discriminators are sha256("global:<name>")[:8].
var instructionTable = [...]instructionDef{
	InstructionKind_CreateDare: {
		name:          "create_dare",
		discriminator: [8]byte{165, 248, 7, 27, 99, 187, 25, 198},
		accounts:      []string{"challenger", "dare", "vault", "challenger_stats", "system_program"},
	},
	InstructionKind_AcceptDare: {
		name:          "accept_dare",
		discriminator: [8]byte{238, 123, 72, 103, 159, 234, 210, 83},
		accounts:      []string{"daree", "dare", "daree_stats", "system_program"},
	},
	InstructionKind_SubmitProof: {
		name:          "submit_proof",
		discriminator: [8]byte{54, 241, 46, 84, 4, 212, 46, 94},
		accounts:      []string{"submitter", "dare", "submitter_stats", "system_program"},
	},
	InstructionKind_ApproveDare: {
		name:          "approve_dare",
		discriminator: [8]byte{75, 217, 114, 212, 39, 128, 254, 190},
		accounts:      []string{"challenger", "dare", "vault", "daree", "daree_stats", "system_program"},
	},
	InstructionKind_RejectDare: {
		name:          "reject_dare",
		discriminator: [8]byte{24, 236, 243, 244, 209, 25, 109, 91},
		accounts:      []string{"challenger", "dare"},
	},
	InstructionKind_CancelDare: {
		name:          "cancel_dare",
		discriminator: [8]byte{170, 254, 168, 239, 96, 236, 53, 126},
		accounts:      []string{"challenger", "dare", "vault", "challenger_stats", "system_program"},
	},
	InstructionKind_RefuseDare: {
		name:          "refuse_dare",
		discriminator: [8]byte{29, 81, 37, 218, 38, 163, 183, 9},
		accounts:      []string{"daree", "dare", "vault", "challenger", "challenger_stats", "system_program"},
	},
	InstructionKind_ExpireDare: {
		name:          "expire_dare",
		discriminator: [8]byte{250, 215, 157, 210, 10, 18, 124, 61},
		accounts:      []string{"caller", "dare", "vault", "challenger", "challenger_stats", "system_program"},
	},
}

// Account positions shared by every instruction.
const (
	SignerAccountIndex = 0
	DareAccountIndex   = 1
)

func (k InstructionKind) Valid() bool { return int(k) < len(instructionTable) }

// Name returns the snake_case instruction name.
func (k InstructionKind) Name() string {
	if !k.Valid() {
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
	return instructionTable[k].name
}

func (k InstructionKind) String() string { return k.Name() }

// Discriminator returns the 8 byte instruction prefix.
func (k InstructionKind) Discriminator() [8]byte {
	return instructionTable[k].discriminator
}

// AccountNames returns the ordered account names of the instruction.
func (k InstructionKind) AccountNames() []string {
	return append([]string(nil), instructionTable[k].accounts...)
}

// KindFromDiscriminator looks up an instruction by its prefix.
func KindFromDiscriminator(disc [8]byte) (InstructionKind, bool) {
	for i := range instructionTable {
		if instructionTable[i].discriminator == disc {
			return InstructionKind(i), true
		}
	}
	return 0, false
}

// Instruction is one of CreateDare, AcceptDare, SubmitProof, ApproveDare,
// RejectDare, CancelDare, RefuseDare or ExpireDare.
type Instruction interface {
	Kind() InstructionKind
	encodeArgs(enc *bin.Encoder) error
}

// CreateDare opens a dare and escrows Amount.
type CreateDare struct {
	DareID          uint64
	DescriptionHash [32]byte
	Amount          uint64
	Deadline        int64
	DareType        DareType
	WinnerSelection WinnerSelection
	// TargetDaree is nil for open dares. Encoded as the zero key.
	TargetDaree *solana.PublicKey
}

type AcceptDare struct{}

type SubmitProof struct {
	ProofHash [32]byte
}

type ApproveDare struct{}

type RejectDare struct{}

type CancelDare struct{}

type RefuseDare struct{}

type ExpireDare struct{}

func (CreateDare) Kind() InstructionKind  { return InstructionKind_CreateDare }
func (AcceptDare) Kind() InstructionKind  { return InstructionKind_AcceptDare }
func (SubmitProof) Kind() InstructionKind { return InstructionKind_SubmitProof }
func (ApproveDare) Kind() InstructionKind { return InstructionKind_ApproveDare }
func (RejectDare) Kind() InstructionKind  { return InstructionKind_RejectDare }
func (CancelDare) Kind() InstructionKind  { return InstructionKind_CancelDare }
func (RefuseDare) Kind() InstructionKind  { return InstructionKind_RefuseDare }
func (ExpireDare) Kind() InstructionKind  { return InstructionKind_ExpireDare }

func (ix CreateDare) encodeArgs(enc *bin.Encoder) error {
	var target solana.PublicKey
	if ix.TargetDaree != nil {
		target = *ix.TargetDaree
	}
	if err := enc.WriteUint64(ix.DareID, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(ix.DescriptionHash[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(ix.Amount, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(ix.Deadline, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(ix.DareType)); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(ix.WinnerSelection)); err != nil {
		return err
	}
	return enc.WriteBytes(target[:], false)
}

func (ix SubmitProof) encodeArgs(enc *bin.Encoder) error {
	return enc.WriteBytes(ix.ProofHash[:], false)
}

func (AcceptDare) encodeArgs(*bin.Encoder) error  { return nil }
func (ApproveDare) encodeArgs(*bin.Encoder) error { return nil }
func (RejectDare) encodeArgs(*bin.Encoder) error  { return nil }
func (CancelDare) encodeArgs(*bin.Encoder) error  { return nil }
func (RefuseDare) encodeArgs(*bin.Encoder) error  { return nil }
func (ExpireDare) encodeArgs(*bin.Encoder) error  { return nil }

// EncodeInstructionData returns discriminator followed by packed arguments.
func EncodeInstructionData(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	disc := ix.Kind().Discriminator()
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := ix.encodeArgs(enc); err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", ix.Kind(), err)
	}
	return buf.Bytes(), nil
}

// DecodeInstructionData parses raw instruction data. Unknown prefixes yield
// ErrInstructionFallbackNotFound; short or malformed payloads yield
// ErrInstructionDidNotDeserialize.
func DecodeInstructionData(data []byte) (Instruction, error) {
	if len(data) < 8 {
		return nil, NewProgramError(ErrCodeInstructionFallbackNotFound, fmt.Sprintf("%d bytes of instruction data", len(data)))
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	kind, ok := KindFromDiscriminator(disc)
	if !ok {
		return nil, NewProgramError(ErrCodeInstructionFallbackNotFound, fmt.Sprintf("discriminator %v", disc))
	}

	dec := bin.NewBorshDecoder(data[8:])
	switch kind {
	case InstructionKind_CreateDare:
		ix, err := decodeCreateDare(dec)
		if err != nil {
			return nil, NewProgramError(ErrCodeInstructionDidNotDeserialize, err.Error())
		}
		return ix, nil
	case InstructionKind_SubmitProof:
		var ix SubmitProof
		if err := readInto(dec, ix.ProofHash[:]); err != nil {
			return nil, NewProgramError(ErrCodeInstructionDidNotDeserialize, "submit_proof: "+err.Error())
		}
		return ix, nil
	case InstructionKind_AcceptDare:
		return AcceptDare{}, nil
	case InstructionKind_ApproveDare:
		return ApproveDare{}, nil
	case InstructionKind_RejectDare:
		return RejectDare{}, nil
	case InstructionKind_CancelDare:
		return CancelDare{}, nil
	case InstructionKind_RefuseDare:
		return RefuseDare{}, nil
	case InstructionKind_ExpireDare:
		return ExpireDare{}, nil
	}
	return nil, NewProgramError(ErrCodeInstructionFallbackNotFound, kind.Name())
}

func decodeCreateDare(dec *bin.Decoder) (CreateDare, error) {
	var (
		ix     CreateDare
		target solana.PublicKey
		err    error
	)
	if ix.DareID, err = dec.ReadUint64(bin.LE); err != nil {
		return ix, fmt.Errorf("dare_id: %w", err)
	}
	if err = readInto(dec, ix.DescriptionHash[:]); err != nil {
		return ix, fmt.Errorf("description_hash: %w", err)
	}
	if ix.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return ix, fmt.Errorf("amount: %w", err)
	}
	if ix.Deadline, err = dec.ReadInt64(bin.LE); err != nil {
		return ix, fmt.Errorf("deadline: %w", err)
	}
	dareType, err := dec.ReadUint8()
	if err != nil {
		return ix, fmt.Errorf("dare_type: %w", err)
	}
	winner, err := dec.ReadUint8()
	if err != nil {
		return ix, fmt.Errorf("winner_selection: %w", err)
	}
	if err = readInto(dec, target[:]); err != nil {
		return ix, fmt.Errorf("target_daree: %w", err)
	}

	ix.DareType = DareType(dareType)
	ix.WinnerSelection = WinnerSelection(winner)
	if !ix.DareType.Valid() || !ix.WinnerSelection.Valid() {
		return ix, fmt.Errorf("%w: dare_type=%d winner_selection=%d", ErrInvalidEnumTag, dareType, winner)
	}
	if !target.IsZero() {
		ix.TargetDaree = &target
	}
	return ix, nil
}

// DareAccounts holds the derived addresses of one dare.
type DareAccounts struct {
	Dare      solana.PublicKey
	DareBump  uint8
	Vault     solana.PublicKey
	VaultBump uint8
}

// DeriveDareAccounts derives the dare and vault addresses for (challenger, dareID).
func DeriveDareAccounts(programID, challenger solana.PublicKey, dareID uint64) (DareAccounts, error) {
	var out DareAccounts
	var err error
	out.Dare, out.DareBump, err = FindDarePDAForProgram(programID, challenger, dareID)
	if err != nil {
		return out, fmt.Errorf("failed to derive dare PDA: %w", err)
	}
	out.Vault, out.VaultBump, err = FindVaultPDAForProgram(programID, out.Dare)
	if err != nil {
		return out, fmt.Errorf("failed to derive vault PDA: %w", err)
	}
	return out, nil
}

// BuildInstruction encodes ix for programID with the given account list.
func BuildInstruction(programID solana.PublicKey, ix Instruction, accounts []*solana.AccountMeta) (*solana.GenericInstruction, error) {
	data, err := EncodeInstructionData(ix)
	if err != nil {
		return nil, err
	}
	if want := len(instructionTable[ix.Kind()].accounts); len(accounts) != want {
		return nil, fmt.Errorf("%s expects %d accounts, got %d", ix.Kind(), want, len(accounts))
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewCreateDareInstruction builds create_dare.
func NewCreateDareInstruction(
	args CreateDare,
	challenger solana.PublicKey,
	dare solana.PublicKey,
	vault solana.PublicKey,
	challengerStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, args, []*solana.AccountMeta{
		solana.NewAccountMeta(challenger, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(challengerStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewAcceptDareInstruction builds accept_dare.
func NewAcceptDareInstruction(
	daree solana.PublicKey,
	dare solana.PublicKey,
	dareeStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, AcceptDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(daree, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(dareeStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewSubmitProofInstruction builds submit_proof.
func NewSubmitProofInstruction(
	proofHash [32]byte,
	submitter solana.PublicKey,
	dare solana.PublicKey,
	submitterStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, SubmitProof{ProofHash: proofHash}, []*solana.AccountMeta{
		solana.NewAccountMeta(submitter, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(submitterStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewApproveDareInstruction builds approve_dare.
func NewApproveDareInstruction(
	challenger solana.PublicKey,
	dare solana.PublicKey,
	vault solana.PublicKey,
	daree solana.PublicKey,
	dareeStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, ApproveDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(challenger, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(daree, true, false),
		solana.NewAccountMeta(dareeStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewRejectDareInstruction builds reject_dare.
func NewRejectDareInstruction(
	challenger solana.PublicKey,
	dare solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, RejectDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(challenger, false, true),
		solana.NewAccountMeta(dare, true, false),
	})
}

// NewCancelDareInstruction builds cancel_dare.
func NewCancelDareInstruction(
	challenger solana.PublicKey,
	dare solana.PublicKey,
	vault solana.PublicKey,
	challengerStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, CancelDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(challenger, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(challengerStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewRefuseDareInstruction builds refuse_dare.
func NewRefuseDareInstruction(
	daree solana.PublicKey,
	dare solana.PublicKey,
	vault solana.PublicKey,
	challenger solana.PublicKey,
	challengerStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, RefuseDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(daree, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(challenger, true, false),
		solana.NewAccountMeta(challengerStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

// NewExpireDareInstruction builds expire_dare. Any funded account may be the caller.
func NewExpireDareInstruction(
	caller solana.PublicKey,
	dare solana.PublicKey,
	vault solana.PublicKey,
	challenger solana.PublicKey,
	challengerStats solana.PublicKey,
) (*solana.GenericInstruction, error) {
	return BuildInstruction(ProgramID, ExpireDare{}, []*solana.AccountMeta{
		solana.NewAccountMeta(caller, true, true),
		solana.NewAccountMeta(dare, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(challenger, true, false),
		solana.NewAccountMeta(challengerStats, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	})
}

func (k InstructionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid instruction kind %d", uint8(k))
	}
	return []byte(k.Name()), nil
}

func (k *InstructionKind) UnmarshalText(text []byte) error {
	for i := range instructionTable {
		if instructionTable[i].name == string(text) {
			*k = InstructionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown instruction %q", string(text))
}
