package program

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	dareme_protocol "dareme-cli/solana"
)

const (
	oneSol      = uint64(1_000_000_000)
	startingSol = 10 * oneSol
	testEpoch   = int64(1_700_000_000)
)

type harness struct {
	t   *testing.T
	rt  *Runtime
	now time.Time
	ids uint64
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, now: time.Unix(testEpoch, 0)}
	h.rt = NewRuntime(nil,
		WithClock(func() time.Time { return h.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return h
}

func (h *harness) funded() solana.PrivateKey {
	key := solana.NewWallet().PrivateKey
	require.NoError(h.t, h.rt.Ledger().Airdrop(key.PublicKey(), startingSol))
	return key
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *harness) unix() int64 { return h.now.Unix() }

func (h *harness) statsKey(user solana.PublicKey) solana.PublicKey {
	key, _, err := dareme_protocol.FindUserStatsPDA(user)
	require.NoError(h.t, err)
	return key
}

func (h *harness) submit(signers []solana.PrivateKey, ix solana.Instruction, err error) (*Receipt, error) {
	require.NoError(h.t, err)
	return h.rt.Submit(context.Background(), signers, ix)
}

func (h *harness) directArgs(target *solana.PublicKey) dareme_protocol.CreateDare {
	h.ids++
	return dareme_protocol.CreateDare{
		DareID:          h.ids,
		DescriptionHash: dareme_protocol.HashDescription("do twenty pushups"),
		Amount:          oneSol,
		Deadline:        h.unix() + 24*60*60,
		DareType:        dareme_protocol.DareType_DirectDare,
		WinnerSelection: dareme_protocol.WinnerSelection_ChallengerSelect,
		TargetDaree:     target,
	}
}

func (h *harness) bountyArgs() dareme_protocol.CreateDare {
	args := h.directArgs(nil)
	args.DareType = dareme_protocol.DareType_PublicBounty
	return args
}

func (h *harness) create(challenger solana.PrivateKey, args dareme_protocol.CreateDare) (solana.PublicKey, error) {
	accounts, err := dareme_protocol.DeriveDareAccounts(h.rt.ProgramID(), challenger.PublicKey(), args.DareID)
	require.NoError(h.t, err)
	ix, err := dareme_protocol.NewCreateDareInstruction(args, challenger.PublicKey(), accounts.Dare, accounts.Vault, h.statsKey(challenger.PublicKey()))
	_, err = h.submit([]solana.PrivateKey{challenger}, ix, err)
	return accounts.Dare, err
}

func (h *harness) mustCreate(challenger solana.PrivateKey, args dareme_protocol.CreateDare) solana.PublicKey {
	dare, err := h.create(challenger, args)
	require.NoError(h.t, err)
	return dare
}

func (h *harness) vault(dare solana.PublicKey) solana.PublicKey {
	vault, _, err := dareme_protocol.FindVaultPDA(dare)
	require.NoError(h.t, err)
	return vault
}

func (h *harness) accept(daree solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewAcceptDareInstruction(daree.PublicKey(), dare, h.statsKey(daree.PublicKey()))
	_, err = h.submit([]solana.PrivateKey{daree}, ix, err)
	return err
}

func (h *harness) submitProof(submitter solana.PrivateKey, dare solana.PublicKey, proof [32]byte) error {
	ix, err := dareme_protocol.NewSubmitProofInstruction(proof, submitter.PublicKey(), dare, h.statsKey(submitter.PublicKey()))
	_, err = h.submit([]solana.PrivateKey{submitter}, ix, err)
	return err
}

func (h *harness) approve(challenger solana.PrivateKey, dare, daree solana.PublicKey) error {
	ix, err := dareme_protocol.NewApproveDareInstruction(challenger.PublicKey(), dare, h.vault(dare), daree, h.statsKey(daree))
	_, err = h.submit([]solana.PrivateKey{challenger}, ix, err)
	return err
}

func (h *harness) reject(challenger solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewRejectDareInstruction(challenger.PublicKey(), dare)
	_, err = h.submit([]solana.PrivateKey{challenger}, ix, err)
	return err
}

func (h *harness) cancel(challenger solana.PrivateKey, dare solana.PublicKey) error {
	ix, err := dareme_protocol.NewCancelDareInstruction(challenger.PublicKey(), dare, h.vault(dare), h.statsKey(challenger.PublicKey()))
	_, err = h.submit([]solana.PrivateKey{challenger}, ix, err)
	return err
}

func (h *harness) refuse(daree solana.PrivateKey, dare, challenger solana.PublicKey) error {
	ix, err := dareme_protocol.NewRefuseDareInstruction(daree.PublicKey(), dare, h.vault(dare), challenger, h.statsKey(challenger))
	_, err = h.submit([]solana.PrivateKey{daree}, ix, err)
	return err
}

func (h *harness) expire(caller solana.PrivateKey, dare, recipient, challenger solana.PublicKey) error {
	ix, err := dareme_protocol.NewExpireDareInstruction(caller.PublicKey(), dare, h.vault(dare), recipient, h.statsKey(challenger))
	_, err = h.submit([]solana.PrivateKey{caller}, ix, err)
	return err
}

func (h *harness) dare(key solana.PublicKey) *dareme_protocol.Dare {
	d, err := h.rt.Ledger().Dare(key)
	require.NoError(h.t, err)
	return d
}

func (h *harness) stats(user solana.PublicKey) *dareme_protocol.UserStats {
	s, err := h.rt.Ledger().UserStats(h.rt.ProgramID(), user)
	require.NoError(h.t, err)
	return s
}

func (h *harness) balance(key solana.PublicKey) uint64 {
	return h.rt.Ledger().Balance(key)
}
