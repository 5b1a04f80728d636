package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"dareme-cli/storage"
)

const defaultProfileName = "default"

var errUserExited = errors.New("user exited")

var rootCmd = &cobra.Command{
	Use:   "dareme-cli",
	Short: "DareMe CLI lets you create, take and settle SOL-backed dares.",
	Long: `An interactive command-line interface for the DareMe escrow program.
Run without arguments for the interactive menu, or use the subcommands for scripting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	Run: run,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagValues.rpc, "rpc", "", "Solana RPC endpoint (overrides "+envRpcURL+")")
	flags.StringVar(&flagValues.programID, "program-id", "", "DareMe program id (overrides "+envProgramID+")")
	flags.StringVar(&flagValues.walletDir, "wallet-dir", "", "directory holding wallet profiles (overrides "+envWalletDir+")")
	flags.StringVarP(&flagValues.profile, "profile", "p", "", "wallet profile to sign with (overrides "+envProfile+")")
}

// run is the main entry point for the interactive CLI.
func run(cmd *cobra.Command, args []string) {
	myFigure := figure.NewFigure("DAREME", "larry3d", true)
	fmt.Println(titleStyle.Render(myFigure.String()))

	for {
		signer, profileName, err := runProfileSelection()
		if err != nil {
			if !errors.Is(err, errUserExited) {
				fmt.Println(warningStyle.Render(err.Error()))
			}
			fmt.Println("Exiting DareMe CLI.")
			return
		}
		runInteractive(cmd.Context(), signer, profileName)
	}
}

// runProfileSelection handles the UI for choosing or creating a wallet profile.
func runProfileSelection() (solana.PrivateKey, string, error) {
	db, err := openWallets()
	if err != nil {
		return nil, "", err
	}

	if !isInitialized(db) {
		if err := runInit(db); err != nil {
			return nil, "", err
		}
	}

	for {
		profiles, err := db.GetAllWalletNames()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get wallet profiles: %w", err)
		}

		options := append(profiles, "Create New Profile", "Import Keypair File", "Exit")

		selection := ""
		prompt := &survey.Select{
			Message: promptStyle.Render("Choose a profile to continue:"),
			Options: options,
		}
		if err := survey.AskOne(prompt, &selection); err != nil {
			return nil, "", errUserExited
		}

		switch selection {
		case "Create New Profile":
			handleCreateProfile(db)
			continue
		case "Import Keypair File":
			handleImportProfile(db)
			continue
		case "Exit":
			return nil, "", errUserExited
		default:
			signer, err := db.GetWallet(selection)
			if err != nil {
				return nil, "", fmt.Errorf("failed to get wallet for profile '%s': %w", selection, err)
			}
			return signer, selection, nil
		}
	}
}

func isInitialized(db *storage.WalletStorage) bool {
	names, err := db.GetAllWalletNames()
	return err == nil && len(names) > 0
}

func runInit(db *storage.WalletStorage) error {
	fmt.Println(titleStyle.Render("🚀 Welcome to DareMe! Let's get you set up."))
	fmt.Println(promptStyle.Render(fmt.Sprintf("   Creating new '%s' wallet...", defaultProfileName)))
	newWallet := solana.NewWallet()
	if err := db.SaveWallet(defaultProfileName, newWallet.PrivateKey); err != nil {
		return fmt.Errorf("failed to save new wallet: %w", err)
	}
	fmt.Println(titleStyle.Render("\n✅ Initialization Complete!"))
	fmt.Println(promptStyle.Render("   Your wallet address:"), newWallet.PublicKey().String())
	fmt.Println(promptStyle.Render("   Fund it with devnet SOL before creating dares."))
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(warningStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}
