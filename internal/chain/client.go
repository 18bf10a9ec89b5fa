package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"coinflip/internal/lib/logger/sl"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/exp/slog"
)

// TransferStatus is the adapter's view of a submitted transaction.
type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"
	StatusConfirmed TransferStatus = "confirmed"
	StatusFailed    TransferStatus = "failed"
)

// Client wraps the Solana JSON-RPC node behind the four operations the
// settlement protocol needs. Pure I/O boundary: no retries, no policy.
type Client struct {
	rpc  *rpc.Client
	log  *slog.Logger
	poll time.Duration
}

func New(endpoint string, poll time.Duration, log *slog.Logger) *Client {
	return &Client{
		rpc:  rpc.New(endpoint),
		log:  log,
		poll: poll,
	}
}

// AddressBalance returns the confirmed lamport balance of addr.
func (c *Client) AddressBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	const op = "chain.Client.AddressBalance"

	out, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %s", op, ErrNetwork, err)
	}

	return out.Value, nil
}

// RecentBlockhash fetches a fresh anchor for the next transaction. Blockhashes
// expire quickly, so one must be fetched per submission, never reused.
func (c *Client) RecentBlockhash(ctx context.Context) (solana.Hash, error) {
	const op = "chain.Client.RecentBlockhash"

	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("%s: %w: %s", op, ErrNetwork, err)
	}

	return out.Value.Blockhash, nil
}

// SubmitTransfer sends an already-signed transaction. Fire and forget:
// rejection here means the node refused it, not that it failed on chain.
func (c *Client) SubmitTransfer(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	const op = "chain.Client.SubmitTransfer"

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w: %s", op, ErrTransferRejected, err)
	}

	c.log.Info("transfer submitted", slog.String("signature", sig.String()))

	return sig, nil
}

// TransferStatus queries the current status of a signature once.
func (c *Client) TransferStatus(ctx context.Context, sig solana.Signature) (TransferStatus, error) {
	const op = "chain.Client.TransferStatus"

	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return StatusPending, fmt.Errorf("%s: %w: %s", op, ErrNetwork, err)
	}

	if len(out.Value) == 0 || out.Value[0] == nil {
		return StatusPending, nil
	}

	st := out.Value[0]

	if st.Err != nil {
		return StatusFailed, nil
	}

	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return StatusConfirmed, nil
	default:
		return StatusPending, nil
	}
}

// TransferInfo is the system transfer a confirmed signature resolves to.
type TransferInfo struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
}

// TransferDetails fetches a landed transaction and decodes the system
// transfer it carries. Anything that is not a successfully executed transfer
// comes back as an error; callers decide what that means for the wager.
func (c *Client) TransferDetails(ctx context.Context, sig solana.Signature) (*TransferInfo, error) {
	const op = "chain.Client.TransferDetails"

	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: transaction not found", op)
		}

		return nil, fmt.Errorf("%s: %w: %s", op, ErrNetwork, err)
	}

	if out == nil || out.Meta == nil {
		return nil, fmt.Errorf("%s: transaction not found", op)
	}

	if out.Meta.Err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTransferFailed)
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	info, err := decodeSystemTransfer(tx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// decodeSystemTransfer finds the first system-program transfer instruction:
// 4-byte little-endian instruction enum, 8-byte lamport amount, accounts
// [from, to].
func decodeSystemTransfer(tx *solana.Transaction) (*TransferInfo, error) {
	msg := tx.Message

	for _, ix := range msg.Instructions {
		prog, err := msg.Program(ix.ProgramIDIndex)
		if err != nil || !prog.Equals(system.ProgramID) {
			continue
		}

		data := []byte(ix.Data)
		if len(data) < 12 || binary.LittleEndian.Uint32(data[:4]) != uint32(system.Instruction_Transfer) {
			continue
		}

		if len(ix.Accounts) < 2 {
			continue
		}

		from, err := msg.Account(ix.Accounts[0])
		if err != nil {
			continue
		}

		to, err := msg.Account(ix.Accounts[1])
		if err != nil {
			continue
		}

		return &TransferInfo{
			From:     from,
			To:       to,
			Lamports: binary.LittleEndian.Uint64(data[4:12]),
		}, nil
	}

	return nil, errors.New("transaction carries no system transfer")
}

// ConfirmTransfer blocks until the network reports the signature confirmed,
// failed, or the timeout elapses. Polling interval comes from config.
func (c *Client) ConfirmTransfer(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	const op = "chain.Client.ConfirmTransfer"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		status, err := c.TransferStatus(ctx, sig)
		if err != nil {
			// A single failed poll is not a verdict; keep polling until
			// the deadline decides.
			c.log.Warn("status poll failed", sl.Err(err))
		}

		switch status {
		case StatusConfirmed:
			c.log.Info("transfer confirmed", slog.String("signature", sig.String()))

			return nil
		case StatusFailed:
			return fmt.Errorf("%s: %w", op, ErrTransferFailed)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ErrConfirmTimeout)
		case <-ticker.C:
		}
	}
}
