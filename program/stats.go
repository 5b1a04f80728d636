package program

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

// initStats loads the stats record of user at i, allocating it on first use.
func (inv *invocation) initStats(i int, user, payer solana.PublicKey) (*dareme_protocol.UserStats, error) {
	bump, err := inv.expectStatsAddress(i, user)
	if err != nil {
		return nil, err
	}
	if acct := inv.ws.get(inv.key(i)); acct == nil || len(acct.Data) == 0 {
		if err := inv.createAccount(payer, i, dareme_protocol.UserStatsAccountSize); err != nil {
			return nil, err
		}
		return &dareme_protocol.UserStats{User: user, Bump: bump}, nil
	}
	return inv.readStats(i)
}

// loadStats loads an existing stats record of user at i.
func (inv *invocation) loadStats(i int, user solana.PublicKey) (*dareme_protocol.UserStats, error) {
	if _, err := inv.expectStatsAddress(i, user); err != nil {
		return nil, err
	}
	return inv.readStats(i)
}

func (inv *invocation) readStats(i int) (*dareme_protocol.UserStats, error) {
	data, err := inv.programAccount(i, dareme_protocol.Account_UserStats)
	if err != nil {
		return nil, err
	}
	stats, err := dareme_protocol.ParseAccount_UserStats(data)
	if err != nil {
		return nil, dareme_protocol.NewProgramError(dareme_protocol.ErrCodeAccountDidNotDeserialize, err.Error())
	}
	return stats, nil
}

func (inv *invocation) storeStats(i int, stats *dareme_protocol.UserStats) error {
	data, err := stats.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode user stats: %w", err)
	}
	inv.ws.get(inv.key(i)).Data = data
	return nil
}

func incrementCount(v *uint32) error {
	if *v == math.MaxUint32 {
		return dareme_protocol.ErrArithmeticOverflow
	}
	*v++
	return nil
}

func addLamports(v *uint64, amount uint64) error {
	if *v > math.MaxUint64-amount {
		return dareme_protocol.ErrArithmeticOverflow
	}
	*v += amount
	return nil
}

func subLamportsSaturating(v *uint64, amount uint64) {
	if amount >= *v {
		*v = 0
		return
	}
	*v -= amount
}
