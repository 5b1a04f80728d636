package cmd

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
)

func TestParseSol(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"1", solana.LAMPORTS_PER_SOL},
		{"0.5", solana.LAMPORTS_PER_SOL / 2},
		{" 2.25 ", 2_250_000_000},
		{"0.000000001", 1},
		{"0.1", 100_000_000},
	}
	for _, tt := range tests {
		got, err := parseSol(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "NaN", "Inf", "1e30"} {
		_, err := parseSol(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatSol(t *testing.T) {
	assert.Equal(t, "1.500000000 SOL", formatSol(1_500_000_000))
	assert.Equal(t, "0.000000001 SOL", formatSol(1))
}

func TestParseDeadline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	got, err := parseDeadline("48h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(48*time.Hour).Unix(), got)

	got, err = parseDeadline("1700086400", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_086_400), got)

	got, err = parseDeadline("2023-11-15T22:13:20Z", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_086_400), got)

	_, err = parseDeadline("-1h", now)
	assert.Error(t, err)
	_, err = parseDeadline("next week", now)
	assert.Error(t, err)
}

func TestParsePublicKey(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	got, err := parsePublicKey("dare address", " "+key.String()+" ")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = parsePublicKey("dare address", "not-a-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dare address")
}

func setCreateFlags(t *testing.T, amount, deadline, dareType, target string) {
	t.Helper()
	saved := createFlags
	t.Cleanup(func() { createFlags = saved })
	createFlags.amount = amount
	createFlags.deadline = deadline
	createFlags.dareType = dareType
	createFlags.winner = "challenger"
	createFlags.target = target
	createFlags.description = "eat a lemon"
	createFlags.id = 42
}

func TestCreateArgsDirect(t *testing.T) {
	target := solana.NewWallet().PublicKey()
	setCreateFlags(t, "0.25", "24h", "direct", target.String())
	now := time.Unix(1_700_000_000, 0)

	args, err := createArgs(now)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), args.DareID)
	assert.Equal(t, uint64(250_000_000), args.Amount)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), args.Deadline)
	assert.Equal(t, dareme_protocol.DareType_DirectDare, args.DareType)
	assert.Equal(t, dareme_protocol.WinnerSelection_ChallengerSelect, args.WinnerSelection)
	assert.Equal(t, dareme_protocol.HashDescription("eat a lemon"), args.DescriptionHash)
	require.NotNil(t, args.TargetDaree)
	assert.Equal(t, target, *args.TargetDaree)
}

func TestCreateArgsBountyNeedsNoTarget(t *testing.T) {
	setCreateFlags(t, "1", "1h", "bounty", "")

	args, err := createArgs(time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	assert.Equal(t, dareme_protocol.DareType_PublicBounty, args.DareType)
	assert.Nil(t, args.TargetDaree)
}

func TestCreateArgsOpenDirect(t *testing.T) {
	setCreateFlags(t, "1", "1h", "direct", "")

	args, err := createArgs(time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	assert.Equal(t, dareme_protocol.DareType_DirectDare, args.DareType)
	assert.Nil(t, args.TargetDaree)
}

func TestCreateArgsGeneratesID(t *testing.T) {
	setCreateFlags(t, "1", "1h", "bounty", "")
	createFlags.id = 0

	args, err := createArgs(time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	assert.NotZero(t, args.DareID)
}

func TestCreateArgsRejectsUnknownType(t *testing.T) {
	setCreateFlags(t, "1", "1h", "duel", "")

	_, err := createArgs(time.Unix(1_700_000_000, 0))
	assert.Error(t, err)
}
