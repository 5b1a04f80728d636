package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	dareme_protocol "dareme-cli/solana"
)

var createFlags struct {
	amount      string
	deadline    string
	dareType    string
	winner      string
	target      string
	description string
	id          uint64
}

var (
	expireAll bool
	proofRef  string
	listScope string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dare and escrow its stake",
	RunE: func(cmd *cobra.Command, args []string) error {
		dareArgs, err := createArgs(time.Now())
		if err != nil {
			return err
		}
		client, err := signerClient()
		if err != nil {
			return err
		}
		fmt.Println(promptStyle.Render(fmt.Sprintf("\nCreating dare #%d with %s at stake...", dareArgs.DareID, formatSol(dareArgs.Amount))))
		sig, pda, err := client.CreateDare(cmd.Context(), dareArgs)
		if err != nil {
			return fmt.Errorf("failed to create dare: %w", err)
		}
		printSignature("Dare Created!", sig)
		fmt.Printf("   Dare Address: %s\n", pda)
		return nil
	},
}

// createArgs turns the create flags into instruction arguments.
func createArgs(now time.Time) (dareme_protocol.CreateDare, error) {
	var args dareme_protocol.CreateDare
	amount, err := parseSol(createFlags.amount)
	if err != nil {
		return args, err
	}
	deadline, err := parseDeadline(createFlags.deadline, now)
	if err != nil {
		return args, err
	}
	dareType, err := dareme_protocol.ParseDareType(createFlags.dareType)
	if err != nil {
		return args, err
	}
	winner, err := dareme_protocol.ParseWinnerSelection(createFlags.winner)
	if err != nil {
		return args, err
	}

	args = dareme_protocol.CreateDare{
		DareID:          createFlags.id,
		DescriptionHash: dareme_protocol.HashDescription(createFlags.description),
		Amount:          amount,
		Deadline:        deadline,
		DareType:        dareType,
		WinnerSelection: winner,
	}
	if args.DareID == 0 {
		args.DareID = dareme_protocol.GenerateDareID()
	}
	if createFlags.target != "" {
		target, err := parsePublicKey("target daree", createFlags.target)
		if err != nil {
			return args, err
		}
		args.TargetDaree = &target
	}
	return args, nil
}

func signerClient() (*dareme_protocol.Client, error) {
	signer, _, err := resolveSigner()
	if err != nil {
		return nil, err
	}
	return newClient(signer)
}

type dareAction func(ctx context.Context, client *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error)

// dareActionCmd builds a subcommand that sends one instruction against a dare.
func dareActionCmd(use, short, done string, action dareAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <dare-address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dare, err := parsePublicKey("dare address", args[0])
			if err != nil {
				return err
			}
			client, err := signerClient()
			if err != nil {
				return err
			}
			sig, err := action(cmd.Context(), client, dare)
			if err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			printSignature(done, sig)
			return nil
		},
	}
}

var (
	acceptCmd = dareActionCmd("accept", "Accept a dare", "Dare Accepted!",
		func(ctx context.Context, c *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error) {
			return c.AcceptDare(ctx, dare)
		})
	refuseCmd = dareActionCmd("refuse", "Refuse a dare aimed at you; the challenger is refunded", "Dare Refused.",
		func(ctx context.Context, c *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error) {
			return c.RefuseDare(ctx, dare)
		})
	approveCmd = dareActionCmd("approve", "Approve submitted proof and pay the daree", "Proof Approved!",
		func(ctx context.Context, c *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error) {
			return c.ApproveDare(ctx, dare)
		})
	rejectCmd = dareActionCmd("reject", "Reject submitted proof", "Proof Rejected.",
		func(ctx context.Context, c *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error) {
			return c.RejectDare(ctx, dare)
		})
	cancelCmd = dareActionCmd("cancel", "Cancel an unaccepted dare and get the stake back", "Dare Cancelled.",
		func(ctx context.Context, c *dareme_protocol.Client, dare solana.PublicKey) (*solana.Signature, error) {
			return c.CancelDare(ctx, dare)
		})
)

var submitProofCmd = &cobra.Command{
	Use:   "submit-proof <dare-address>",
	Short: "Submit proof for a dare (the reference is hashed on-chain)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dare, err := parsePublicKey("dare address", args[0])
		if err != nil {
			return err
		}
		client, err := signerClient()
		if err != nil {
			return err
		}
		proofHash := dareme_protocol.HashProof(proofRef)
		sig, err := client.SubmitProof(cmd.Context(), dare, proofHash)
		if err != nil {
			return fmt.Errorf("submit-proof failed: %w", err)
		}
		printSignature("Proof Submitted!", sig)
		fmt.Printf("   Proof Hash: %x\n", proofHash[:])
		return nil
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire [dare-address]",
	Short: "Refund the challenger of a dare past its deadline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := signerClient()
		if err != nil {
			return err
		}
		if expireAll {
			sent, err := client.ExpireAll(cmd.Context())
			for dare, sig := range sent {
				fmt.Println(infoStyle.Render(fmt.Sprintf("   %s expired: %s", dare, sig)))
			}
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("\n✅ %d dare(s) expired.", len(sent))))
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("pass a dare address or --all")
		}
		dare, err := parsePublicKey("dare address", args[0])
		if err != nil {
			return err
		}
		sig, err := client.ExpireDare(cmd.Context(), dare)
		if err != nil {
			return fmt.Errorf("expire failed: %w", err)
		}
		printSignature("Dare Expired.", sig)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <dare-address>",
	Short: "Show a dare's on-chain state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dare, err := parsePublicKey("dare address", args[0])
		if err != nil {
			return err
		}
		client, err := newReadOnlyClient()
		if err != nil {
			return err
		}
		d, err := client.FetchDare(cmd.Context(), dare)
		if err != nil {
			return err
		}
		printDare(dare, d)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [wallet]",
	Short: "Show the statistics of a wallet (default: the active profile)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user solana.PublicKey
		if len(args) == 1 {
			key, err := parsePublicKey("wallet", args[0])
			if err != nil {
				return err
			}
			user = key
		} else {
			signer, _, err := resolveSigner()
			if err != nil {
				return err
			}
			user = signer.PublicKey()
		}
		client, err := newReadOnlyClient()
		if err != nil {
			return err
		}
		stats, err := client.FetchUserStats(cmd.Context(), user)
		if err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dares (--scope created|dared|all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dares, err := listDares(cmd.Context(), listScope)
		if err != nil {
			return err
		}
		if len(dares) == 0 {
			fmt.Println(promptStyle.Render("No dares found."))
			return nil
		}
		for _, d := range dares {
			printDareLine(d)
		}
		return nil
	},
}

func listDares(ctx context.Context, scope string) ([]*dareme_protocol.DareResult, error) {
	if scope == "all" {
		client, err := newReadOnlyClient()
		if err != nil {
			return nil, err
		}
		return client.FetchAllDares(ctx)
	}

	signer, _, err := resolveSigner()
	if err != nil {
		return nil, err
	}
	client, err := newClient(signer)
	if err != nil {
		return nil, err
	}
	var dares []*dareme_protocol.DareResult
	switch scope {
	case "", "created":
		dares, err = client.FetchDaresByChallenger(ctx, signer.PublicKey())
	case "dared":
		dares, err = client.FetchDaresByDaree(ctx, signer.PublicKey())
	default:
		return nil, fmt.Errorf("unknown scope %q: use created, dared or all", scope)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(dares, func(i, j int) bool { return dares[i].Account.CreatedAt > dares[j].Account.CreatedAt })
	return dares, nil
}

func printDareLine(d *dareme_protocol.DareResult) {
	fmt.Printf("%s  #%-14d %-16s %s  deadline %s\n",
		d.PublicKey,
		d.Account.DareID,
		renderStatus(d.Account.Status.String()),
		formatSol(d.Account.Amount),
		time.Unix(d.Account.Deadline, 0).Format(time.DateTime),
	)
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createFlags.amount, "amount", "", "stake in SOL (required)")
	f.StringVar(&createFlags.deadline, "deadline", "24h", "duration from now, unix timestamp or RFC 3339 (max 30 days)")
	f.StringVar(&createFlags.dareType, "type", "direct", "direct or bounty")
	f.StringVar(&createFlags.winner, "winner", "challenger", "winner selection: challenger or community")
	f.StringVar(&createFlags.target, "target", "", "daree wallet for a direct dare (omit for an open dare anyone can accept)")
	f.StringVar(&createFlags.description, "description", "", "dare description; only its hash goes on-chain")
	f.Uint64Var(&createFlags.id, "id", 0, "dare id (default: current unix millis)")
	_ = createCmd.MarkFlagRequired("amount")

	submitProofCmd.Flags().StringVar(&proofRef, "proof", "", "proof reference, usually a media URL (required)")
	_ = submitProofCmd.MarkFlagRequired("proof")

	expireCmd.Flags().BoolVar(&expireAll, "all", false, "expire every dare past its deadline")
	listCmd.Flags().StringVar(&listScope, "scope", "created", "created, dared or all")

	rootCmd.AddCommand(createCmd, acceptCmd, refuseCmd, submitProofCmd, approveCmd, rejectCmd, cancelCmd, expireCmd, showCmd, statsCmd, listCmd)
}
