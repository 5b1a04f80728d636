package dareme_protocol

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
)

const (
	defaultConfigDirName = ".config"
	daremeConfigDirName  = "dareme"
	walletFileName       = "wallet.json"
)

// Wallet holds a keypair in the Solana CLI file format (a JSON array of 64 bytes).
type Wallet struct {
	PrivateKey solana.PrivateKey
}

// PublicKey returns the public key of the wallet.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.PrivateKey.PublicKey()
}

// LoadOrCreateWallet loads the keypair at path, creating one if the file is missing.
// An empty path selects DefaultWalletPath.
func LoadOrCreateWallet(path string) (*Wallet, error) {
	if path == "" {
		var err error
		if path, err = DefaultWalletPath(); err != nil {
			return nil, fmt.Errorf("failed to get wallet path: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createNewWallet(path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check for wallet file: %w", err)
	}

	return LoadWallet(path)
}

// createNewWallet generates a new private key and saves it to the specified path.
func createNewWallet(path string) (*Wallet, error) {
	privateKey := solana.NewWallet().PrivateKey
	wallet := &Wallet{PrivateKey: privateKey}

	if err := SaveWallet(wallet, path); err != nil {
		return nil, fmt.Errorf("failed to save new wallet: %w", err)
	}
	return wallet, nil
}

// LoadWallet loads a keypair file.
func LoadWallet(path string) (*Wallet, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var privateKeyBytes []byte
	if err := json.Unmarshal(bytes, &privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet file: %w", err)
	}

	if len(privateKeyBytes) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(privateKeyBytes))
	}

	return &Wallet{PrivateKey: solana.PrivateKey(privateKeyBytes)}, nil
}

// SaveWallet writes the keypair as a JSON byte array.
func SaveWallet(wallet *Wallet, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}

	// Marshal as numbers, not base64.
	ints := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		ints[i] = int(b)
	}
	bytes, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}

	return nil
}

// DefaultWalletPath returns the default absolute path for the wallet file.
// e.g., /home/user/.config/dareme/wallet.json
func DefaultWalletPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, defaultConfigDirName, daremeConfigDirName, walletFileName), nil
}
