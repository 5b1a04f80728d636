package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

const (
	profilesFileName = "profiles.json"
	configDirName    = ".config"
	appDirName       = "dareme"
)

// ErrWalletNotFound is returned when no profile has the requested name.
var ErrWalletNotFound = errors.New("storage: wallet not found")

// walletData is one profile as stored in the JSON file.
type walletData struct {
	Name       string `json:"name"`
	PrivateKey string `json:"private_key"` // base64
}

type walletFile struct {
	Wallets []walletData `json:"wallets"`
}

// WalletStorage keeps named keypair profiles in a JSON file.
type WalletStorage struct {
	mu   sync.Mutex
	path string
}

// NewWalletStorage opens the profile file inside dir, creating it if needed.
// An empty dir selects ~/.config/dareme.
func NewWalletStorage(dir string) (*WalletStorage, error) {
	if dir == "" {
		var err error
		if dir, err = defaultDir(); err != nil {
			return nil, fmt.Errorf("could not get wallet directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create wallet directory: %w", err)
	}

	s := &WalletStorage{path: filepath.Join(dir, profilesFileName)}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.write(&walletFile{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("could not stat wallet file: %w", err)
	}
	return s, nil
}

// Path returns the location of the profile file.
func (s *WalletStorage) Path() string { return s.path }

// GetWallet returns the keypair stored under name.
func (s *WalletStorage) GetWallet(name string) (solana.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, w := range file.Wallets {
		if w.Name == name {
			return decodeKey(w)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
}

// SaveWallet stores key under name, replacing any previous profile of that name.
func (s *WalletStorage) SaveWallet(name string, key solana.PrivateKey) error {
	if name == "" {
		return errors.New("storage: profile name is required")
	}
	if len(key) != solana.PrivateKeyLength {
		return fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return err
	}
	entry := walletData{Name: name, PrivateKey: base64.StdEncoding.EncodeToString(key)}
	replaced := false
	for i := range file.Wallets {
		if file.Wallets[i].Name == name {
			file.Wallets[i] = entry
			replaced = true
		}
	}
	if !replaced {
		file.Wallets = append(file.Wallets, entry)
	}
	return s.write(file)
}

// GetAllWalletNames lists the profile names in alphabetical order.
func (s *WalletStorage) GetAllWalletNames() ([]string, error) {
	wallets, err := s.GetAllWallets()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(wallets))
	for _, w := range wallets {
		names = append(names, w.Name)
	}
	return names, nil
}

// GetAllWallets returns every profile, sorted by name.
func (s *WalletStorage) GetAllWallets() ([]Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, err
	}
	wallets := make([]Wallet, 0, len(file.Wallets))
	for _, w := range file.Wallets {
		key, err := decodeKey(w)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, Wallet{Name: w.Name, PrivateKey: key})
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return wallets, nil
}

func (s *WalletStorage) read() (*walletFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("could not read wallet file: %w", err)
	}
	file := &walletFile{}
	if len(data) == 0 {
		return file, nil
	}
	if err := json.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("could not parse wallet file: %w", err)
	}
	return file, nil
}

func (s *WalletStorage) write(file *walletFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal wallet data: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("could not write wallet file: %w", err)
	}
	return nil
}

func decodeKey(w walletData) (solana.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("could not decode private key for %q: %w", w.Name, err)
	}
	if len(raw) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length for %q: expected %d, got %d", w.Name, solana.PrivateKeyLength, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, configDirName, appDirName), nil
}
