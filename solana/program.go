package dareme_protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the address of the deployed DareMe program. It can be
// replaced at startup (see SetProgramID) when targeting a local deployment.
var ProgramID = solana.MustPublicKeyFromBase58("8Vg3ximsFxoaEveSLQNe49i8tkSaeNubnxa54ypwXiD8")

// Seed tags used for address derivation.
var (
	DareSeed      = []byte("dare")
	VaultSeed     = []byte("vault")
	UserStatsSeed = []byte("user_stats")
)

const (
	// MaxDeadlineDuration is the furthest a deadline may be set from creation time, in seconds.
	MaxDeadlineDuration int64 = 30 * 24 * 60 * 60
)

// SetProgramID overrides the program address used by the helpers in this package.
func SetProgramID(id solana.PublicKey) {
	ProgramID = id
}

// SetProgramIDFromBase58 parses and installs a program address.
func SetProgramIDFromBase58(s string) error {
	id, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return fmt.Errorf("invalid program id %q: %w", s, err)
	}
	SetProgramID(id)
	return nil
}

func dareIDSeed(dareID uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, dareID)
}

// FindDarePDA returns the address of the dare record for (challenger, dareID).
func FindDarePDA(challenger solana.PublicKey, dareID uint64) (solana.PublicKey, uint8, error) {
	return FindDarePDAForProgram(ProgramID, challenger, dareID)
}

// FindDarePDAForProgram is FindDarePDA against an explicit program id.
func FindDarePDAForProgram(programID, challenger solana.PublicKey, dareID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			DareSeed,
			challenger.Bytes(),
			dareIDSeed(dareID),
		},
		programID,
	)
}

// CreateDareAddress recomputes a dare address from a known bump.
func CreateDareAddress(programID, challenger solana.PublicKey, dareID uint64, bump uint8) (solana.PublicKey, error) {
	return solana.CreateProgramAddress(
		[][]byte{
			DareSeed,
			challenger.Bytes(),
			dareIDSeed(dareID),
			{bump},
		},
		programID,
	)
}

// FindVaultPDA returns the escrow vault owned by the given dare record.
func FindVaultPDA(dare solana.PublicKey) (solana.PublicKey, uint8, error) {
	return FindVaultPDAForProgram(ProgramID, dare)
}

// FindVaultPDAForProgram is FindVaultPDA against an explicit program id.
func FindVaultPDAForProgram(programID, dare solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			VaultSeed,
			dare.Bytes(),
		},
		programID,
	)
}

// CreateVaultAddress recomputes a vault address from a known bump.
func CreateVaultAddress(programID, dare solana.PublicKey, bump uint8) (solana.PublicKey, error) {
	return solana.CreateProgramAddress(
		[][]byte{
			VaultSeed,
			dare.Bytes(),
			{bump},
		},
		programID,
	)
}

// FindUserStatsPDA returns the stats record for a user.
func FindUserStatsPDA(user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return FindUserStatsPDAForProgram(ProgramID, user)
}

// FindUserStatsPDAForProgram is FindUserStatsPDA against an explicit program id.
func FindUserStatsPDAForProgram(programID, user solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			UserStatsSeed,
			user.Bytes(),
		},
		programID,
	)
}
