package cmd

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
)

func TestRunScenarioOutcomes(t *testing.T) {
	tests := []struct {
		scenario string
		want     dareme_protocol.DareStatus
	}{
		{"approve", dareme_protocol.DareStatus_Completed},
		{"reject-resubmit", dareme_protocol.DareStatus_Completed},
		{"cancel", dareme_protocol.DareStatus_Cancelled},
		{"refuse", dareme_protocol.DareStatus_Refused},
		{"expire", dareme_protocol.DareStatus_Expired},
		{"bounty", dareme_protocol.DareStatus_Completed},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			sim, err := runScenario(context.Background(), tt.scenario, io.Discard, false)
			require.NoError(t, err)

			ledger := sim.rt.Ledger()
			assert.Equal(t, uint64(len(sim.parties))*simulatedAirdrop, ledger.TotalLamports(), "lamports are conserved")

			dare, _, err := dareme_protocol.FindDarePDAForProgram(sim.rt.ProgramID(), sim.parties["challenger"].PublicKey(), sim.ids)
			require.NoError(t, err)
			d, err := ledger.Dare(dare)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Status)
			assert.Zero(t, ledger.Balance(sim.vault(dare)), "vault is emptied on settlement")
		})
	}
}

func TestRunScenarioPaysTheDaree(t *testing.T) {
	sim, err := runScenario(context.Background(), "approve", io.Discard, false)
	require.NoError(t, err)

	stats, err := sim.rt.Ledger().UserStats(sim.rt.ProgramID(), sim.parties["daree"].PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.DaresCompleted)
	assert.Equal(t, uint64(1_000_000_000), stats.TotalEarned)
}

func TestRunScenarioPrintsLogs(t *testing.T) {
	var out bytes.Buffer
	_, err := runScenario(context.Background(), "cancel", &out, true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cancel_dare")
	assert.Contains(t, out.String(), "lamports refunded")
}

func TestRunScenarioUnknown(t *testing.T) {
	_, err := runScenario(context.Background(), "duel", io.Discard, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reject-resubmit")
}
