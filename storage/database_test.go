package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := NewWalletStorage(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, profilesFileName))

	names, err := db.GetAllWalletNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	alice := solana.NewWallet().PrivateKey
	bob := solana.NewWallet().PrivateKey
	require.NoError(t, db.SaveWallet("bob", bob))
	require.NoError(t, db.SaveWallet("alice", alice))

	got, err := db.GetWallet("alice")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	names, err = db.GetAllWalletNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)

	// Survives reopening.
	reopened, err := NewWalletStorage(dir)
	require.NoError(t, err)
	got, err = reopened.GetWallet("bob")
	require.NoError(t, err)
	assert.Equal(t, bob.PublicKey(), got.PublicKey())
}

func TestWalletStorageReplacesProfile(t *testing.T) {
	db, err := NewWalletStorage(t.TempDir())
	require.NoError(t, err)

	first := solana.NewWallet().PrivateKey
	second := solana.NewWallet().PrivateKey
	require.NoError(t, db.SaveWallet("main", first))
	require.NoError(t, db.SaveWallet("main", second))

	wallets, err := db.GetAllWallets()
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, second, wallets[0].PrivateKey)
}

func TestWalletStorageErrors(t *testing.T) {
	dir := t.TempDir()
	db, err := NewWalletStorage(dir)
	require.NoError(t, err)

	_, err = db.GetWallet("nobody")
	assert.ErrorIs(t, err, ErrWalletNotFound)

	assert.Error(t, db.SaveWallet("", solana.NewWallet().PrivateKey))
	assert.Error(t, db.SaveWallet("short", solana.PrivateKey{1, 2, 3}))

	require.NoError(t, os.WriteFile(db.Path(), []byte("{not json"), 0600))
	_, err = db.GetAllWalletNames()
	assert.Error(t, err)
}
