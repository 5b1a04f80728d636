package program

import (
	"errors"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"

	dareme_protocol "dareme-cli/solana"
)

var (
	errBalanceOverflow = errors.New("program: balance overflow")
	errZeroAirdrop     = errors.New("program: airdrop amount must be positive")
)

// Rent parameters, matching the default cluster configuration.
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// MinimumBalance is the rent-exempt balance for an account holding dataLen bytes.
func MinimumBalance(dataLen int) uint64 {
	return uint64(accountStorageOverhead+dataLen) * lamportsPerByteYear * exemptionThreshold
}

// Account is a ledger entry.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		Lamports: a.Lamports,
		Owner:    a.Owner,
		Data:     append([]byte(nil), a.Data...),
	}
}

// Ledger holds every account known to the runtime. Handlers never touch it
// directly; they go through a workingSet that is committed atomically.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[solana.PublicKey]*Account)}
}

// Airdrop credits a system-owned account, creating it if needed.
func (l *Ledger) Airdrop(key solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return errZeroAirdrop
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[key]
	if !ok {
		acct = &Account{Owner: solana.SystemProgramID}
		l.accounts[key] = acct
	}
	if acct.Lamports > math.MaxUint64-lamports {
		return errBalanceOverflow
	}
	acct.Lamports += lamports
	return nil
}

// Balance returns the lamports held by key, zero if the account does not exist.
func (l *Ledger) Balance(key solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[key]; ok {
		return acct.Lamports
	}
	return 0
}

// Account returns a copy of the account at key.
func (l *Ledger) Account(key solana.PublicKey) (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[key]
	if !ok {
		return Account{}, false
	}
	return *acct.clone(), true
}

// Dare decodes the dare record stored at key.
func (l *Ledger) Dare(key solana.PublicKey) (*dareme_protocol.Dare, error) {
	acct, ok := l.Account(key)
	if !ok {
		return nil, dareme_protocol.ErrDareNotFound
	}
	return dareme_protocol.ParseAccount_Dare(acct.Data)
}

// UserStats decodes the stats record of user. A user without a record has zero stats.
func (l *Ledger) UserStats(programID, user solana.PublicKey) (*dareme_protocol.UserStats, error) {
	key, _, err := dareme_protocol.FindUserStatsPDAForProgram(programID, user)
	if err != nil {
		return nil, err
	}
	acct, ok := l.Account(key)
	if !ok {
		return &dareme_protocol.UserStats{User: user}, nil
	}
	return dareme_protocol.ParseAccount_UserStats(acct.Data)
}

// TotalLamports sums every balance in the ledger.
func (l *Ledger) TotalLamports() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, acct := range l.accounts {
		total += acct.Lamports
	}
	return total
}

// workingSet is a copy-on-write view of the ledger for one transaction.
// A nil entry in touched marks a deleted account.
type workingSet struct {
	base    *Ledger
	touched map[solana.PublicKey]*Account
}

func newWorkingSet(base *Ledger) *workingSet {
	return &workingSet{base: base, touched: make(map[solana.PublicKey]*Account)}
}

// get returns a mutable copy of the account, or nil when it does not exist.
func (w *workingSet) get(key solana.PublicKey) *Account {
	if acct, ok := w.touched[key]; ok {
		return acct
	}
	w.base.mu.RLock()
	acct := w.base.accounts[key].clone()
	w.base.mu.RUnlock()
	if acct != nil {
		w.touched[key] = acct
	}
	return acct
}

// getOrCreate returns the account at key, materializing an empty system account if needed.
func (w *workingSet) getOrCreate(key solana.PublicKey) *Account {
	if acct := w.get(key); acct != nil {
		return acct
	}
	acct := &Account{Owner: solana.SystemProgramID}
	w.touched[key] = acct
	return acct
}

func (w *workingSet) remove(key solana.PublicKey) {
	w.touched[key] = nil
}

func (w *workingSet) commit() {
	w.base.mu.Lock()
	defer w.base.mu.Unlock()
	for key, acct := range w.touched {
		if acct == nil || (acct.Lamports == 0 && len(acct.Data) == 0) {
			delete(w.base.accounts, key)
			continue
		}
		w.base.accounts[key] = acct
	}
}
