package cmd

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

func openWallets() (*storage.WalletStorage, error) {
	db, err := storage.NewWalletStorage(cfg.WalletDir)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet storage: %w", err)
	}
	return db, nil
}

// resolveSigner picks the configured profile, or the only profile there is.
func resolveSigner() (solana.PrivateKey, string, error) {
	db, err := openWallets()
	if err != nil {
		return nil, "", err
	}
	name := cfg.Profile
	if name == "" {
		names, err := db.GetAllWalletNames()
		if err != nil {
			return nil, "", err
		}
		switch len(names) {
		case 0:
			return nil, "", errors.New("no wallet profiles yet: run 'dareme-cli wallet new <name>' first")
		case 1:
			name = names[0]
		default:
			return nil, "", fmt.Errorf("several profiles exist (%s): choose one with --profile", strings.Join(names, ", "))
		}
	}
	signer, err := db.GetWallet(name)
	if err != nil {
		return nil, "", err
	}
	return signer, name, nil
}

func newClient(signer solana.PrivateKey) (*dareme_protocol.Client, error) {
	client, err := dareme_protocol.NewClient(cfg.RpcEndpoint, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solana client: %w", err)
	}
	return client, nil
}

func newReadOnlyClient() (*dareme_protocol.Client, error) {
	client, err := dareme_protocol.NewReadOnlyClient(cfg.RpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create Solana client: %w", err)
	}
	return client, nil
}

// parseSol converts a decimal SOL amount into lamports.
func parseSol(s string) (uint64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, fmt.Errorf("amount must be positive, got %q", s)
	}
	lamports := math.Round(amount * float64(solana.LAMPORTS_PER_SOL))
	if lamports >= math.MaxUint64 {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return uint64(lamports), nil
}

func formatSol(lamports uint64) string {
	return fmt.Sprintf("%.9f SOL", float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
}

// parseDeadline accepts a duration from now ("48h"), a unix timestamp or RFC 3339.
func parseDeadline(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("deadline must be in the future, got %q", s)
		}
		return now.Add(d).Unix(), nil
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid deadline %q: use a duration like 48h, a unix timestamp or RFC 3339", s)
	}
	return t.Unix(), nil
}

func parsePublicKey(what, s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return key, nil
}

func printDare(pda solana.PublicKey, d *dareme_protocol.Dare) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("🎯 Dare #%d", d.DareID)))
	fmt.Printf("   Address:     %s\n", pda)
	fmt.Printf("   Status:      %s\n", renderStatus(d.Status.String()))
	fmt.Printf("   Type:        %s (%s)\n", d.DareType, d.WinnerSelection)
	fmt.Printf("   Stake:       %s\n", formatSol(d.Amount))
	fmt.Printf("   Challenger:  %s\n", d.Challenger)
	if d.Daree != nil {
		fmt.Printf("   Daree:       %s\n", d.Daree)
	} else {
		fmt.Printf("   Daree:       %s\n", promptStyle.Render("open to anyone"))
	}
	fmt.Printf("   Deadline:    %s\n", time.Unix(d.Deadline, 0).Format(time.RFC1123))
	if d.ProofHash != nil {
		fmt.Printf("   Proof hash:  %x\n", d.ProofHash[:])
	}
	if d.AcceptedAt != 0 {
		fmt.Printf("   Accepted:    %s\n", time.Unix(d.AcceptedAt, 0).Format(time.RFC1123))
	}
	if d.CompletedAt != 0 {
		fmt.Printf("   Completed:   %s\n", time.Unix(d.CompletedAt, 0).Format(time.RFC1123))
	}
	if d.RefusedAt != 0 {
		fmt.Printf("   Refused:     %s\n", time.Unix(d.RefusedAt, 0).Format(time.RFC1123))
	}
}

func printStats(s *dareme_protocol.UserStats) {
	fmt.Println(titleStyle.Render("📊 Stats for " + s.User.String()))
	fmt.Printf("   Dares created:   %d\n", s.DaresCreated)
	fmt.Printf("   Dares accepted:  %d\n", s.DaresAccepted)
	fmt.Printf("   Dares completed: %d\n", s.DaresCompleted)
	fmt.Printf("   Dares failed:    %d\n", s.DaresFailed)
	fmt.Printf("   Total earned:    %s\n", formatSol(s.TotalEarned))
	fmt.Printf("   Total escrowed:  %s\n", formatSol(s.TotalSpent))
}

func printSignature(action string, sig *solana.Signature) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("\n✅ %s", action)))
	fmt.Printf("   Transaction Signature: %s\n", sig.String())
}
