package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

var walletKeyfile string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet profiles",
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallet profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openWallets()
		if err != nil {
			return err
		}
		wallets, err := db.GetAllWallets()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Println(promptStyle.Render("No profiles yet."))
			return nil
		}
		for _, w := range wallets {
			fmt.Printf("%-16s %s\n", w.Name, w.PrivateKey.PublicKey())
		}
		return nil
	},
}

var walletNewCmd = &cobra.Command{
	Use:   "new <profile>",
	Short: "Generate a keypair under a new profile name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openWallets()
		if err != nil {
			return err
		}
		if walletKeyfile != "" {
			return keyfileProfile(db, args[0], walletKeyfile)
		}
		return createProfile(db, args[0])
	},
}

var walletImportCmd = &cobra.Command{
	Use:   "import <profile> <keypair.json>",
	Short: "Import a Solana CLI keypair file as a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openWallets()
		if err != nil {
			return err
		}
		return importProfile(db, args[0], args[1])
	},
}

var walletExportCmd = &cobra.Command{
	Use:   "export <keypair.json>",
	Short: "Write the active profile as a Solana CLI keypair file (UNSAFE)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, name, err := resolveSigner()
		if err != nil {
			return err
		}
		if err := dareme_protocol.SaveWallet(&dareme_protocol.Wallet{PrivateKey: signer}, args[0]); err != nil {
			return err
		}
		fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️ Private key of '%s' written to %s. Keep it safe.", name, args[0])))
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the active profile's address and balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, name, err := resolveSigner()
		if err != nil {
			return err
		}
		client, err := newClient(signer)
		if err != nil {
			return err
		}
		balance, err := client.GetBalance(cmd.Context(), signer.PublicKey())
		if err != nil {
			return fmt.Errorf("failed to get balance: %w", err)
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("💰 %s", name)))
		fmt.Printf("   Address: %s\n", signer.PublicKey())
		fmt.Printf("   Balance: %s\n", formatSol(balance))
		return nil
	},
}

var walletSendCmd = &cobra.Command{
	Use:   "send <recipient> <amount-sol>",
	Short: "Send SOL from the active profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient, err := parsePublicKey("recipient address", args[0])
		if err != nil {
			return err
		}
		lamports, err := parseSol(args[1])
		if err != nil {
			return err
		}
		client, err := signerClient()
		if err != nil {
			return err
		}
		sig, err := client.SendSol(cmd.Context(), recipient, lamports)
		if err != nil {
			return fmt.Errorf("failed to send SOL: %w", err)
		}
		printSignature("Transaction Sent Successfully!", sig)
		return nil
	},
}

func createProfile(db *storage.WalletStorage, name string) error {
	if _, err := db.GetWallet(name); err == nil {
		return fmt.Errorf("profile '%s' already exists", name)
	}
	newWallet := solana.NewWallet()
	if err := db.SaveWallet(name, newWallet.PrivateKey); err != nil {
		return fmt.Errorf("failed to save new wallet: %w", err)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("✅ Profile '%s' Created!", name)))
	fmt.Println(promptStyle.Render("   Wallet address:"), newWallet.PublicKey().String())
	return nil
}

func importProfile(db *storage.WalletStorage, name, path string) error {
	wallet, err := dareme_protocol.LoadWallet(path)
	if err != nil {
		return err
	}
	if err := db.SaveWallet(name, wallet.PrivateKey); err != nil {
		return fmt.Errorf("failed to save imported wallet: %w", err)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("✅ Profile '%s' Imported!", name)))
	fmt.Println(promptStyle.Render("   Wallet address:"), wallet.PublicKey().String())
	return nil
}

// keyfileProfile registers the keypair at path, generating the file first if it does not exist.
func keyfileProfile(db *storage.WalletStorage, name, path string) error {
	wallet, err := dareme_protocol.LoadOrCreateWallet(path)
	if err != nil {
		return err
	}
	if err := db.SaveWallet(name, wallet.PrivateKey); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("✅ Profile '%s' Ready!", name)))
	fmt.Println(promptStyle.Render("   Keypair file:"), path)
	fmt.Println(promptStyle.Render("   Wallet address:"), wallet.PublicKey().String())
	return nil
}

func init() {
	walletNewCmd.Flags().StringVar(&walletKeyfile, "keyfile", "", "also keep the keypair in this Solana CLI keyfile (loaded if it exists)")
	walletCmd.AddCommand(walletListCmd, walletNewCmd, walletImportCmd, walletExportCmd, walletBalanceCmd, walletSendCmd)
	rootCmd.AddCommand(walletCmd)
}
