package dareme_protocol

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrDareNotFound is returned when a dare account does not exist on-chain.
var ErrDareNotFound = errors.New("dare account not found")

// Client is a client for the DareMe program.
type Client struct {
	RpcClient *rpc.Client
	Signer    solana.PrivateKey
}

// NewClient creates a new Client for the DareMe program with a specific signer.
func NewClient(rpcEndpoint string, signer solana.PrivateKey) (*Client, error) {
	rpcClient := rpc.New(rpcEndpoint)

	return &Client{
		RpcClient: rpcClient,
		Signer:    signer,
	}, nil
}

// NewReadOnlyClient creates a new client for read-only operations that don't require a signer.
// It uses a dummy keypair internally.
func NewReadOnlyClient(rpcEndpoint string) (*Client, error) {
	rpcClient := rpc.New(rpcEndpoint)
	dummyWallet := solana.NewWallet()

	return &Client{
		RpcClient: rpcClient,
		Signer:    dummyWallet.PrivateKey,
	}, nil
}

// HashDescription returns the sha256 digest stored on-chain for a dare's off-chain description.
func HashDescription(description string) [32]byte {
	return sha256.Sum256([]byte(description))
}

// HashProof returns the sha256 digest of a proof reference (usually a media URL).
func HashProof(proof string) [32]byte {
	return sha256.Sum256([]byte(proof))
}

// GenerateDareID returns a fresh dare id based on the wall clock in milliseconds.
func GenerateDareID() uint64 {
	return uint64(time.Now().UnixMilli())
}

// sendInstructions signs the instructions with the client signer and sends them in one transaction.
func (c *Client) sendInstructions(ctx context.Context, instructions ...solana.Instruction) (*solana.Signature, error) {
	latestBlockhash, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(c.Signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if c.Signer.PublicKey().Equals(key) {
				return &c.Signer
			}
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.RpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return &sig, nil
}

// CreateDare opens a new dare funded by the signer and returns the dare address.
func (c *Client) CreateDare(ctx context.Context, args CreateDare) (*solana.Signature, solana.PublicKey, error) {
	challenger := c.Signer.PublicKey()

	accounts, err := DeriveDareAccounts(ProgramID, challenger, args.DareID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	statsPDA, _, err := FindUserStatsPDA(challenger)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to get challenger stats PDA: %w", err)
	}

	instruction, err := NewCreateDareInstruction(args, challenger, accounts.Dare, accounts.Vault, statsPDA)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to create CreateDare instruction: %w", err)
	}

	sig, err := c.sendInstructions(ctx, instruction)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return sig, accounts.Dare, nil
}

// AcceptDare accepts a direct dare as the signer.
func (c *Client) AcceptDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	daree := c.Signer.PublicKey()
	statsPDA, _, err := FindUserStatsPDA(daree)
	if err != nil {
		return nil, fmt.Errorf("failed to get daree stats PDA: %w", err)
	}

	instruction, err := NewAcceptDareInstruction(daree, dare, statsPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to create AcceptDare instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// SubmitProof submits a proof hash as the signer.
func (c *Client) SubmitProof(ctx context.Context, dare solana.PublicKey, proofHash [32]byte) (*solana.Signature, error) {
	submitter := c.Signer.PublicKey()
	statsPDA, _, err := FindUserStatsPDA(submitter)
	if err != nil {
		return nil, fmt.Errorf("failed to get submitter stats PDA: %w", err)
	}

	instruction, err := NewSubmitProofInstruction(proofHash, submitter, dare, statsPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to create SubmitProof instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// ApproveDare releases the escrow to the recorded daree.
func (c *Client) ApproveDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	account, err := c.FetchDare(ctx, dare)
	if err != nil {
		return nil, err
	}
	if account.Daree == nil {
		return nil, fmt.Errorf("dare %s has no daree to pay", dare)
	}

	vaultPDA, _, err := FindVaultPDA(dare)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}
	dareeStats, _, err := FindUserStatsPDA(*account.Daree)
	if err != nil {
		return nil, fmt.Errorf("failed to get daree stats PDA: %w", err)
	}

	instruction, err := NewApproveDareInstruction(c.Signer.PublicKey(), dare, vaultPDA, *account.Daree, dareeStats)
	if err != nil {
		return nil, fmt.Errorf("failed to create ApproveDare instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// RejectDare rejects the submitted proof.
func (c *Client) RejectDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	instruction, err := NewRejectDareInstruction(c.Signer.PublicKey(), dare)
	if err != nil {
		return nil, fmt.Errorf("failed to create RejectDare instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// CancelDare cancels an unaccepted dare and refunds the signer.
func (c *Client) CancelDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	challenger := c.Signer.PublicKey()
	vaultPDA, _, err := FindVaultPDA(dare)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}
	statsPDA, _, err := FindUserStatsPDA(challenger)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenger stats PDA: %w", err)
	}

	instruction, err := NewCancelDareInstruction(challenger, dare, vaultPDA, statsPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to create CancelDare instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// RefuseDare declines a dare that targets the signer.
func (c *Client) RefuseDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	return c.refundInstruction(ctx, dare, NewRefuseDareInstruction)
}

// ExpireDare refunds the challenger of a dare whose deadline has passed. Anyone may call it.
func (c *Client) ExpireDare(ctx context.Context, dare solana.PublicKey) (*solana.Signature, error) {
	return c.refundInstruction(ctx, dare, NewExpireDareInstruction)
}

type refundBuilder func(signer, dare, vault, challenger, challengerStats solana.PublicKey) (*solana.GenericInstruction, error)

func (c *Client) refundInstruction(ctx context.Context, dare solana.PublicKey, build refundBuilder) (*solana.Signature, error) {
	account, err := c.FetchDare(ctx, dare)
	if err != nil {
		return nil, err
	}
	vaultPDA, _, err := FindVaultPDA(dare)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}
	statsPDA, _, err := FindUserStatsPDA(account.Challenger)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenger stats PDA: %w", err)
	}

	instruction, err := build(c.Signer.PublicKey(), dare, vaultPDA, account.Challenger, statsPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to build refund instruction: %w", err)
	}
	return c.sendInstructions(ctx, instruction)
}

// FetchDare fetches and parses a dare account.
func (c *Client) FetchDare(ctx context.Context, dare solana.PublicKey) (*Dare, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, dare, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDareNotFound, dare)
		}
		return nil, fmt.Errorf("failed to get dare account info: %w", err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrDareNotFound, dare)
	}

	account, err := ParseAccount_Dare(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse dare account data: %w", err)
	}
	return account, nil
}

// FetchUserStats fetches a user's stats. A user with no stats account yet gets zeroed stats.
func (c *Client) FetchUserStats(ctx context.Context, user solana.PublicKey) (*UserStats, error) {
	statsPDA, _, err := FindUserStatsPDA(user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats PDA: %w", err)
	}

	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, statsPDA, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil || resp.Value == nil {
		if err == nil || errors.Is(err, rpc.ErrNotFound) {
			return &UserStats{User: user}, nil
		}
		return nil, fmt.Errorf("failed to get user stats account info: %w", err)
	}

	stats, err := ParseAccount_UserStats(resp.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to parse user stats account data: %w", err)
	}
	return stats, nil
}

// DareResult wraps a Dare account with its public key.
type DareResult struct {
	PublicKey solana.PublicKey
	Account   Dare
}

// FetchDaresByChallenger lists every dare created by challenger, newest first.
func (c *Client) FetchDaresByChallenger(ctx context.Context, challenger solana.PublicKey) ([]*DareResult, error) {
	return c.fetchDares(ctx, rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: DareChallengerOffset,
			Bytes:  challenger[:],
		},
	})
}

// FetchDaresByDaree lists every dare whose recorded daree is daree.
func (c *Client) FetchDaresByDaree(ctx context.Context, daree solana.PublicKey) ([]*DareResult, error) {
	return c.fetchDares(ctx, rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: DareDareeOffset,
			Bytes:  daree[:],
		},
	})
}

// FetchAllDares lists every dare owned by the program.
func (c *Client) FetchAllDares(ctx context.Context) ([]*DareResult, error) {
	return c.fetchDares(ctx)
}

func (c *Client) fetchDares(ctx context.Context, filters ...rpc.RPCFilter) ([]*DareResult, error) {
	all := append([]rpc.RPCFilter{
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0, // Discriminator is at the start.
				Bytes:  Account_Dare[:],
			},
		},
	}, filters...)

	resp, err := c.RpcClient.GetProgramAccountsWithOpts(
		ctx,
		ProgramID,
		&rpc.GetProgramAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Filters:    all,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts for dares: %w", err)
	}

	var dares []*DareResult
	for _, item := range resp {
		account, err := ParseAccount_Dare(item.Account.Data.GetBinary())
		if err != nil {
			fmt.Printf("Warning: failed to parse a Dare account at %s: %v\n", item.Pubkey.String(), err)
			continue
		}
		dares = append(dares, &DareResult{
			PublicKey: item.Pubkey,
			Account:   *account,
		})
	}
	sort.Slice(dares, func(i, j int) bool {
		return dares[i].Account.CreatedAt > dares[j].Account.CreatedAt
	})
	return dares, nil
}

// SendSol sends a specified amount of SOL to a recipient.
func (c *Client) SendSol(ctx context.Context, recipient solana.PublicKey, amountLamports uint64) (*solana.Signature, error) {
	instruction := system.NewTransferInstruction(
		amountLamports,
		c.Signer.PublicKey(),
		recipient,
	).Build()

	return c.sendInstructions(ctx, instruction)
}

// GetBalance retrieves the SOL balance for a given public key.
func (c *Client) GetBalance(ctx context.Context, publicKey solana.PublicKey) (uint64, error) {
	balance, err := c.RpcClient.GetBalance(
		ctx,
		publicKey,
		rpc.CommitmentFinalized,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}
