package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"dareme-cli/program"
	dareme_protocol "dareme-cli/solana"
)

const simulatedAirdrop = 10 * solana.LAMPORTS_PER_SOL

var (
	simulateScenario string
	simulateLogs     bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a dare lifecycle against an in-process copy of the program",
	Long: `Runs one scenario against a local ledger, without any RPC node.
Scenarios: ` + strings.Join(scenarioNames(), ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runScenario(cmd.Context(), simulateScenario, os.Stdout, simulateLogs)
		return err
	},
}

// simulation drives a Runtime with a clock it controls.
type simulation struct {
	rt      *program.Runtime
	now     time.Time
	out     io.Writer
	logs    bool
	ids     uint64
	parties map[string]solana.PrivateKey
}

func newSimulation(out io.Writer, logs bool) *simulation {
	s := &simulation{
		now:     time.Now().Truncate(time.Second),
		out:     out,
		logs:    logs,
		parties: make(map[string]solana.PrivateKey),
	}
	s.rt = program.NewRuntime(nil,
		program.WithClock(func() time.Time { return s.now }),
		program.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return s
}

func (s *simulation) party(name string) (solana.PrivateKey, error) {
	if key, ok := s.parties[name]; ok {
		return key, nil
	}
	key := solana.NewWallet().PrivateKey
	if err := s.rt.Ledger().Airdrop(key.PublicKey(), simulatedAirdrop); err != nil {
		return nil, err
	}
	s.parties[name] = key
	return key, nil
}

func (s *simulation) stats(user solana.PublicKey) solana.PublicKey {
	key, _, _ := dareme_protocol.FindUserStatsPDAForProgram(s.rt.ProgramID(), user)
	return key
}

func (s *simulation) vault(dare solana.PublicKey) solana.PublicKey {
	key, _, _ := dareme_protocol.FindVaultPDAForProgram(s.rt.ProgramID(), dare)
	return key
}

func (s *simulation) step(ctx context.Context, label string, signer solana.PrivateKey, ix *solana.GenericInstruction, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	receipt, err := s.rt.Submit(ctx, []solana.PrivateKey{signer}, ix)
	if receipt != nil && s.logs {
		for _, line := range receipt.Logs {
			fmt.Fprintln(s.out, infoStyle.Render("      "+line))
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	fmt.Fprintf(s.out, "   ✅ %-28s slot %d\n", label, receipt.Slot)
	return nil
}

func (s *simulation) create(ctx context.Context, challenger solana.PrivateKey, dareType dareme_protocol.DareType, target *solana.PublicKey) (solana.PublicKey, error) {
	s.ids++
	args := dareme_protocol.CreateDare{
		DareID:          s.ids,
		DescriptionHash: dareme_protocol.HashDescription("simulated dare"),
		Amount:          solana.LAMPORTS_PER_SOL,
		Deadline:        s.now.Add(24 * time.Hour).Unix(),
		DareType:        dareType,
		WinnerSelection: dareme_protocol.WinnerSelection_ChallengerSelect,
		TargetDaree:     target,
	}
	accounts, err := dareme_protocol.DeriveDareAccounts(s.rt.ProgramID(), challenger.PublicKey(), args.DareID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	ix, err := dareme_protocol.NewCreateDareInstruction(args, challenger.PublicKey(), accounts.Dare, accounts.Vault, s.stats(challenger.PublicKey()))
	if err := s.step(ctx, fmt.Sprintf("create_dare (%s)", dareType), challenger, ix, err); err != nil {
		return solana.PublicKey{}, err
	}
	return accounts.Dare, nil
}

func (s *simulation) accept(ctx context.Context, daree solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewAcceptDareInstruction(daree.PublicKey(), dare, s.stats(daree.PublicKey()))
	return s.step(ctx, "accept_dare", daree, ix, err)
}

func (s *simulation) submit(ctx context.Context, submitter solana.PrivateKey, dare solana.PublicKey, proof string) error {
	ix, err := dareme_protocol.NewSubmitProofInstruction(dareme_protocol.HashProof(proof), submitter.PublicKey(), dare, s.stats(submitter.PublicKey()))
	return s.step(ctx, "submit_proof", submitter, ix, err)
}

func (s *simulation) approve(ctx context.Context, challenger solana.PrivateKey, dare, daree solana.PublicKey) error {
	ix, err := dareme_protocol.NewApproveDareInstruction(challenger.PublicKey(), dare, s.vault(dare), daree, s.stats(daree))
	return s.step(ctx, "approve_dare", challenger, ix, err)
}

func (s *simulation) reject(ctx context.Context, challenger solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewRejectDareInstruction(challenger.PublicKey(), dare)
	return s.step(ctx, "reject_dare", challenger, ix, err)
}

func (s *simulation) cancel(ctx context.Context, challenger solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewCancelDareInstruction(challenger.PublicKey(), dare, s.vault(dare), s.stats(challenger.PublicKey()))
	return s.step(ctx, "cancel_dare", challenger, ix, err)
}

func (s *simulation) refuse(ctx context.Context, daree solana.PrivateKey, dare, challenger solana.PublicKey) error {
	ix, err := dareme_protocol.NewRefuseDareInstruction(daree.PublicKey(), dare, s.vault(dare), challenger, s.stats(challenger))
	return s.step(ctx, "refuse_dare", daree, ix, err)
}

func (s *simulation) expire(ctx context.Context, caller solana.PrivateKey, dare, challenger solana.PublicKey) error {
	ix, err := dareme_protocol.NewExpireDareInstruction(caller.PublicKey(), dare, s.vault(dare), challenger, s.stats(challenger))
	return s.step(ctx, "expire_dare", caller, ix, err)
}

type scenario func(ctx context.Context, s *simulation) (solana.PublicKey, error)

var scenarios = map[string]scenario{
	"approve": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		return directLifecycle(ctx, s, false)
	},
	"reject-resubmit": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		return directLifecycle(ctx, s, true)
	},
	"cancel": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		challenger, err := s.party("challenger")
		if err != nil {
			return solana.PublicKey{}, err
		}
		dare, err := s.create(ctx, challenger, dareme_protocol.DareType_PublicBounty, nil)
		if err != nil {
			return dare, err
		}
		return dare, s.cancel(ctx, challenger, dare)
	},
	"refuse": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		challenger, daree, err := s.pair()
		if err != nil {
			return solana.PublicKey{}, err
		}
		target := daree.PublicKey()
		dare, err := s.create(ctx, challenger, dareme_protocol.DareType_DirectDare, &target)
		if err != nil {
			return dare, err
		}
		return dare, s.refuse(ctx, daree, dare, challenger.PublicKey())
	},
	"expire": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		challenger, daree, err := s.pair()
		if err != nil {
			return solana.PublicKey{}, err
		}
		keeper, err := s.party("keeper")
		if err != nil {
			return solana.PublicKey{}, err
		}
		dare, err := s.create(ctx, challenger, dareme_protocol.DareType_DirectDare, nil)
		if err != nil {
			return dare, err
		}
		if err := s.accept(ctx, daree, dare); err != nil {
			return dare, err
		}
		s.now = s.now.Add(25 * time.Hour)
		fmt.Fprintln(s.out, promptStyle.Render("   ⏩ clock advanced past the deadline"))
		return dare, s.expire(ctx, keeper, dare, challenger.PublicKey())
	},
	"bounty": func(ctx context.Context, s *simulation) (solana.PublicKey, error) {
		challenger, err := s.party("challenger")
		if err != nil {
			return solana.PublicKey{}, err
		}
		hunter, err := s.party("hunter")
		if err != nil {
			return solana.PublicKey{}, err
		}
		dare, err := s.create(ctx, challenger, dareme_protocol.DareType_PublicBounty, nil)
		if err != nil {
			return dare, err
		}
		if err := s.submit(ctx, hunter, dare, "https://example.com/bounty.mp4"); err != nil {
			return dare, err
		}
		return dare, s.approve(ctx, challenger, dare, hunter.PublicKey())
	},
}

func (s *simulation) pair() (solana.PrivateKey, solana.PrivateKey, error) {
	challenger, err := s.party("challenger")
	if err != nil {
		return nil, nil, err
	}
	daree, err := s.party("daree")
	if err != nil {
		return nil, nil, err
	}
	return challenger, daree, nil
}

func directLifecycle(ctx context.Context, s *simulation, rejectFirst bool) (solana.PublicKey, error) {
	challenger, daree, err := s.pair()
	if err != nil {
		return solana.PublicKey{}, err
	}
	target := daree.PublicKey()
	dare, err := s.create(ctx, challenger, dareme_protocol.DareType_DirectDare, &target)
	if err != nil {
		return dare, err
	}
	if err := s.accept(ctx, daree, dare); err != nil {
		return dare, err
	}
	if err := s.submit(ctx, daree, dare, "https://example.com/proof-1.mp4"); err != nil {
		return dare, err
	}
	if rejectFirst {
		if err := s.reject(ctx, challenger, dare); err != nil {
			return dare, err
		}
		if err := s.submit(ctx, daree, dare, "https://example.com/proof-2.mp4"); err != nil {
			return dare, err
		}
	}
	return dare, s.approve(ctx, challenger, dare, daree.PublicKey())
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runScenario plays the named scenario and prints the final dare and balances.
func runScenario(ctx context.Context, name string, out io.Writer, logs bool) (*simulation, error) {
	play, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q: choose one of %s", name, strings.Join(scenarioNames(), ", "))
	}
	s := newSimulation(out, logs)
	fmt.Fprintln(out, titleStyle.Render("🧪 Scenario: "+name))

	dare, err := play(ctx, s)
	if err != nil {
		return s, err
	}

	d, err := s.rt.Ledger().Dare(dare)
	if err != nil {
		return s, err
	}
	fmt.Fprintf(out, "\n   Dare status:  %s\n", renderStatus(d.Status.String()))
	fmt.Fprintf(out, "   Vault:        %s\n", formatSol(s.rt.Ledger().Balance(s.vault(dare))))

	names := make([]string, 0, len(s.parties))
	for n := range s.parties {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "   %-13s %s\n", n+":", formatSol(s.rt.Ledger().Balance(s.parties[n].PublicKey())))
	}
	return s, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simulateScenario, "scenario", "approve", "scenario to run")
	simulateCmd.Flags().BoolVar(&simulateLogs, "logs", false, "print program logs for every transaction")
	rootCmd.AddCommand(simulateCmd)
}
