package dareme_protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DareStatus is the lifecycle state of a dare.
type DareStatus uint8

const (
	DareStatus_Created DareStatus = iota
	DareStatus_Active
	DareStatus_ProofSubmitted
	DareStatus_Completed
	DareStatus_Expired
	DareStatus_Cancelled
	DareStatus_Rejected
	DareStatus_Refused
)

var dareStatusNames = [...]string{
	"Created",
	"Active",
	"ProofSubmitted",
	"Completed",
	"Expired",
	"Cancelled",
	"Rejected",
	"Refused",
}

func (s DareStatus) String() string {
	if int(s) < len(dareStatusNames) {
		return dareStatusNames[s]
	}
	return fmt.Sprintf("DareStatus(%d)", uint8(s))
}

// Valid reports whether s is a known status tag.
func (s DareStatus) Valid() bool { return int(s) < len(dareStatusNames) }

// IsTerminal reports whether no instruction can move a dare out of s.
// Rejected is not terminal: the daree may resubmit or the dare may expire.
func (s DareStatus) IsTerminal() bool {
	switch s {
	case DareStatus_Completed, DareStatus_Expired, DareStatus_Cancelled, DareStatus_Refused:
		return true
	}
	return false
}

func (s DareStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid dare status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *DareStatus) UnmarshalText(text []byte) error {
	v, err := ParseDareStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseDareStatus accepts a status name, case-insensitively.
func ParseDareStatus(name string) (DareStatus, error) {
	for i, n := range dareStatusNames {
		if strings.EqualFold(n, name) {
			return DareStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown dare status %q", name)
}

// DareType decides who may accept and submit proof.
type DareType uint8

const (
	DareType_DirectDare DareType = iota
	DareType_PublicBounty
)

func (t DareType) String() string {
	switch t {
	case DareType_DirectDare:
		return "DirectDare"
	case DareType_PublicBounty:
		return "PublicBounty"
	}
	return fmt.Sprintf("DareType(%d)", uint8(t))
}

func (t DareType) Valid() bool { return t <= DareType_PublicBounty }

func (t DareType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid dare type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *DareType) UnmarshalText(text []byte) error {
	v, err := ParseDareType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseDareType accepts "DirectDare"/"direct" or "PublicBounty"/"bounty".
func ParseDareType(name string) (DareType, error) {
	switch strings.ToLower(name) {
	case "directdare", "direct":
		return DareType_DirectDare, nil
	case "publicbounty", "bounty", "public":
		return DareType_PublicBounty, nil
	}
	return 0, fmt.Errorf("unknown dare type %q", name)
}

// WinnerSelection is recorded on the dare. Only ChallengerSelect has a
// resolution path; CommunityVote is stored but never acted on.
type WinnerSelection uint8

const (
	WinnerSelection_ChallengerSelect WinnerSelection = iota
	WinnerSelection_CommunityVote
)

func (w WinnerSelection) String() string {
	switch w {
	case WinnerSelection_ChallengerSelect:
		return "ChallengerSelect"
	case WinnerSelection_CommunityVote:
		return "CommunityVote"
	}
	return fmt.Sprintf("WinnerSelection(%d)", uint8(w))
}

func (w WinnerSelection) Valid() bool { return w <= WinnerSelection_CommunityVote }

func (w WinnerSelection) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid winner selection %d", uint8(w))
	}
	return []byte(w.String()), nil
}

func (w *WinnerSelection) UnmarshalText(text []byte) error {
	v, err := ParseWinnerSelection(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func ParseWinnerSelection(name string) (WinnerSelection, error) {
	switch strings.ToLower(name) {
	case "challengerselect", "challenger":
		return WinnerSelection_ChallengerSelect, nil
	case "communityvote", "community":
		return WinnerSelection_CommunityVote, nil
	}
	return 0, fmt.Errorf("unknown winner selection %q", name)
}

// Account discriminators, sha256("account:<Name>")[:8].
var (
	Account_Dare      = [8]byte{99, 27, 218, 204, 253, 181, 17, 54}
	Account_UserStats = [8]byte{176, 223, 136, 27, 122, 79, 32, 227}
)

// Account sizes, including the 8 byte discriminator.
const (
	// 8 (discriminator) + 32 + 32 + 1 + 8 + 32 + 8 + 1 + 1 + 1 + 32 + 1 + 8*4 + 1 + 1
	LegacyDareAccountSize = 191
	// LegacyDareAccountSize + 8 (refused_at)
	DareAccountSize = 199
	// 8 (discriminator) + 32 + 4*4 + 8 + 8 + 1
	UserStatsAccountSize = 73
)

// Field offsets inside a dare record, used for getProgramAccounts filters.
const (
	DareChallengerOffset = 8
	DareDareeOffset      = 40
	DareStatusOffset     = 121
	UserStatsUserOffset  = 8
)

var (
	ErrAccountTooShort       = errors.New("account data too short")
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
	ErrInvalidEnumTag        = errors.New("invalid enum tag")
)

// Dare is the decoded dare record. Daree and ProofHash are nil when absent;
// the has-flag and zero-value sentinel exist only in the binary layout.
type Dare struct {
	Challenger      solana.PublicKey  `json:"challenger"`
	Daree           *solana.PublicKey `json:"daree,omitempty"`
	DareID          uint64            `json:"dareId"`
	DescriptionHash [32]byte          `json:"descriptionHash"`
	Amount          uint64            `json:"amount"`
	Status          DareStatus        `json:"status"`
	DareType        DareType          `json:"dareType"`
	WinnerSelection WinnerSelection   `json:"winnerSelection"`
	ProofHash       *[32]byte         `json:"proofHash,omitempty"`
	CreatedAt       int64             `json:"createdAt"`
	Deadline        int64             `json:"deadline"`
	AcceptedAt      int64             `json:"acceptedAt"`
	CompletedAt     int64             `json:"completedAt"`
	Bump            uint8             `json:"bump"`
	VaultBump       uint8             `json:"vaultBump"`
	RefusedAt       int64             `json:"refusedAt"`
}

// HasDaree reports whether a daree is recorded.
func (d *Dare) HasDaree() bool { return d.Daree != nil }

// IsDaree reports whether key is the recorded daree.
func (d *Dare) IsDaree(key solana.PublicKey) bool {
	return d.Daree != nil && d.Daree.Equals(key)
}

// MarshalBinary encodes the dare record, discriminator included.
func (d *Dare) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(DareAccountSize)
	enc := bin.NewBorshEncoder(buf)

	var daree solana.PublicKey
	if d.Daree != nil {
		daree = *d.Daree
	}
	var proof [32]byte
	if d.ProofHash != nil {
		proof = *d.ProofHash
	}

	steps := []func() error{
		func() error { return enc.WriteBytes(Account_Dare[:], false) },
		func() error { return enc.WriteBytes(d.Challenger[:], false) },
		func() error { return enc.WriteBytes(daree[:], false) },
		func() error { return enc.WriteBool(d.Daree != nil) },
		func() error { return enc.WriteUint64(d.DareID, bin.LE) },
		func() error { return enc.WriteBytes(d.DescriptionHash[:], false) },
		func() error { return enc.WriteUint64(d.Amount, bin.LE) },
		func() error { return enc.WriteUint8(uint8(d.Status)) },
		func() error { return enc.WriteUint8(uint8(d.DareType)) },
		func() error { return enc.WriteUint8(uint8(d.WinnerSelection)) },
		func() error { return enc.WriteBytes(proof[:], false) },
		func() error { return enc.WriteBool(d.ProofHash != nil) },
		func() error { return enc.WriteInt64(d.CreatedAt, bin.LE) },
		func() error { return enc.WriteInt64(d.Deadline, bin.LE) },
		func() error { return enc.WriteInt64(d.AcceptedAt, bin.LE) },
		func() error { return enc.WriteInt64(d.CompletedAt, bin.LE) },
		func() error { return enc.WriteUint8(d.Bump) },
		func() error { return enc.WriteUint8(d.VaultBump) },
		func() error { return enc.WriteInt64(d.RefusedAt, bin.LE) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("failed to encode dare: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ParseAccount_Dare decodes a dare record. Records written before refused_at
// was appended (LegacyDareAccountSize bytes) decode with RefusedAt zero.
func ParseAccount_Dare(data []byte) (*Dare, error) {
	if len(data) < LegacyDareAccountSize {
		return nil, fmt.Errorf("%w: dare needs %d bytes, got %d", ErrAccountTooShort, LegacyDareAccountSize, len(data))
	}
	if !bytes.Equal(data[:8], Account_Dare[:]) {
		return nil, fmt.Errorf("%w: expected Dare", ErrDiscriminatorMismatch)
	}

	dec := bin.NewBorshDecoder(data[8:])
	d := new(Dare)
	var (
		daree    solana.PublicKey
		hasDaree bool
		proof    [32]byte
		hasProof bool
		status   uint8
		dareType uint8
		winner   uint8
	)

	steps := []func() error{
		func() error { return readInto(dec, d.Challenger[:]) },
		func() error { return readInto(dec, daree[:]) },
		func() (err error) { hasDaree, err = dec.ReadBool(); return },
		func() (err error) { d.DareID, err = dec.ReadUint64(bin.LE); return },
		func() error { return readInto(dec, d.DescriptionHash[:]) },
		func() (err error) { d.Amount, err = dec.ReadUint64(bin.LE); return },
		func() (err error) { status, err = dec.ReadUint8(); return },
		func() (err error) { dareType, err = dec.ReadUint8(); return },
		func() (err error) { winner, err = dec.ReadUint8(); return },
		func() error { return readInto(dec, proof[:]) },
		func() (err error) { hasProof, err = dec.ReadBool(); return },
		func() (err error) { d.CreatedAt, err = dec.ReadInt64(bin.LE); return },
		func() (err error) { d.Deadline, err = dec.ReadInt64(bin.LE); return },
		func() (err error) { d.AcceptedAt, err = dec.ReadInt64(bin.LE); return },
		func() (err error) { d.CompletedAt, err = dec.ReadInt64(bin.LE); return },
		func() (err error) { d.Bump, err = dec.ReadUint8(); return },
		func() (err error) { d.VaultBump, err = dec.ReadUint8(); return },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("failed to decode dare: %w", err)
		}
	}
	if len(data) >= DareAccountSize {
		refused, err := dec.ReadInt64(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("failed to decode dare refused_at: %w", err)
		}
		d.RefusedAt = refused
	}

	d.Status = DareStatus(status)
	d.DareType = DareType(dareType)
	d.WinnerSelection = WinnerSelection(winner)
	if !d.Status.Valid() || !d.DareType.Valid() || !d.WinnerSelection.Valid() {
		return nil, fmt.Errorf("%w: status=%d type=%d winner=%d", ErrInvalidEnumTag, status, dareType, winner)
	}
	if hasDaree {
		d.Daree = &daree
	}
	if hasProof {
		d.ProofHash = &proof
	}
	return d, nil
}

// UserStats aggregates a user's participation. DaresFailed is part of the
// layout but no instruction increments it.
type UserStats struct {
	User           solana.PublicKey `json:"user"`
	DaresCreated   uint32           `json:"daresCreated"`
	DaresAccepted  uint32           `json:"daresAccepted"`
	DaresCompleted uint32           `json:"daresCompleted"`
	DaresFailed    uint32           `json:"daresFailed"`
	TotalEarned    uint64           `json:"totalEarned"`
	TotalSpent     uint64           `json:"totalSpent"`
	Bump           uint8            `json:"bump"`
}

func (s *UserStats) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(UserStatsAccountSize)
	enc := bin.NewBorshEncoder(buf)

	steps := []func() error{
		func() error { return enc.WriteBytes(Account_UserStats[:], false) },
		func() error { return enc.WriteBytes(s.User[:], false) },
		func() error { return enc.WriteUint32(s.DaresCreated, bin.LE) },
		func() error { return enc.WriteUint32(s.DaresAccepted, bin.LE) },
		func() error { return enc.WriteUint32(s.DaresCompleted, bin.LE) },
		func() error { return enc.WriteUint32(s.DaresFailed, bin.LE) },
		func() error { return enc.WriteUint64(s.TotalEarned, bin.LE) },
		func() error { return enc.WriteUint64(s.TotalSpent, bin.LE) },
		func() error { return enc.WriteUint8(s.Bump) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("failed to encode user stats: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ParseAccount_UserStats decodes a stats record.
func ParseAccount_UserStats(data []byte) (*UserStats, error) {
	if len(data) < UserStatsAccountSize {
		return nil, fmt.Errorf("%w: user stats needs %d bytes, got %d", ErrAccountTooShort, UserStatsAccountSize, len(data))
	}
	if !bytes.Equal(data[:8], Account_UserStats[:]) {
		return nil, fmt.Errorf("%w: expected UserStats", ErrDiscriminatorMismatch)
	}

	dec := bin.NewBorshDecoder(data[8:])
	s := new(UserStats)
	steps := []func() error{
		func() error { return readInto(dec, s.User[:]) },
		func() (err error) { s.DaresCreated, err = dec.ReadUint32(bin.LE); return },
		func() (err error) { s.DaresAccepted, err = dec.ReadUint32(bin.LE); return },
		func() (err error) { s.DaresCompleted, err = dec.ReadUint32(bin.LE); return },
		func() (err error) { s.DaresFailed, err = dec.ReadUint32(bin.LE); return },
		func() (err error) { s.TotalEarned, err = dec.ReadUint64(bin.LE); return },
		func() (err error) { s.TotalSpent, err = dec.ReadUint64(bin.LE); return },
		func() (err error) { s.Bump, err = dec.ReadUint8(); return },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("failed to decode user stats: %w", err)
		}
	}
	return s, nil
}

func readInto(dec *bin.Decoder, dst []byte) error {
	b, err := dec.ReadNBytes(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
