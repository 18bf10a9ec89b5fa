package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coinflip/internal/chain"
	"coinflip/internal/config"
	"coinflip/internal/http-server/handlers/fairness"
	"coinflip/internal/lib/converter"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// State is the session's position in the wager lifecycle. No state survives
// process restart.
type State string

const (
	StateIdle                State = "idle"
	StateBetSubmitted        State = "bet_submitted"
	StateBetConfirmed        State = "bet_confirmed"
	StateSettlementRequested State = "settlement_requested"
	StateSettled             State = "settled"
	StateErrored             State = "errored"
)

type Ledger interface {
	AddressBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	RecentBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitTransfer(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransfer(ctx context.Context, sig solana.Signature, timeout time.Duration) error
}

type Wallet interface {
	Address() solana.PublicKey
	BuildTransfer(to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error)
}

type SettlementAPI interface {
	HouseWallet(ctx context.Context) (*HouseWalletInfo, error)
	Settle(ctx context.Context, req SettleRequest) (*SettleResponse, error)
}

// Result is the terminal view of one wager, adopted verbatim from the
// service's settlement record.
type Result struct {
	Won          bool
	Result       int
	Payout       float64
	PayoutSig    string
	Paid         bool
	Message      string
	BetSignature solana.Signature
}

// Session runs one wager at a time through the settlement protocol. The
// service's record is the single source of truth: the session checks it for
// internal consistency but never overrides it.
type Session struct {
	log            *slog.Logger
	ledger         Ledger
	wallet         Wallet
	api            SettlementAPI
	minBet         float64
	maxBet         float64
	confirmTimeout time.Duration

	mu       sync.Mutex
	state    State
	flipping bool
}

func NewSession(
	log *slog.Logger,
	ledger Ledger,
	wallet Wallet,
	api SettlementAPI,
	game config.GameConfig,
	confirmTimeout time.Duration,
) *Session {
	return &Session{
		log:            log,
		ledger:         ledger,
		wallet:         wallet,
		api:            api,
		minBet:         game.MinBet,
		maxBet:         game.MaxBet,
		confirmTimeout: confirmTimeout,
		state:          StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Flip plays one wager end to end: bet transfer, confirmation, settlement,
// adoption of the returned record. Concurrent calls are rejected.
func (s *Session) Flip(ctx context.Context, amountSol float64, choice int) (*Result, error) {
	const op = "client.Session.Flip"

	s.mu.Lock()
	if s.flipping {
		s.mu.Unlock()

		return nil, ErrFlipInProgress
	}
	s.flipping = true
	s.state = StateIdle
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flipping = false
		s.mu.Unlock()
	}()

	log := s.log.With(
		slog.String("op", op),
		slog.Any("amount", amountSol),
		slog.Int("choice", choice),
	)

	if err := s.precheck(ctx, amountSol, choice); err != nil {
		s.setState(StateErrored)

		return nil, err
	}

	betSig, err := s.placeBet(ctx, log, amountSol)
	if err != nil {
		s.setState(StateErrored)

		return nil, err
	}

	s.setState(StateSettlementRequested)

	resp, err := s.api.Settle(ctx, SettleRequest{
		UserAddress:  s.wallet.Address().String(),
		Amount:       amountSol,
		Choice:       choice,
		BetSignature: betSig.String(),
		RequestID:    uuid.New().String(),
	})
	if err != nil {
		s.setState(StateErrored)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.adopt(resp, choice, betSig)
	if err != nil {
		s.setState(StateErrored)

		return nil, err
	}

	s.setState(StateSettled)
	log.Info("wager settled",
		slog.Bool("won", result.Won),
		slog.Int("result", result.Result),
		slog.Bool("paid", result.Paid))
	s.setState(StateIdle)

	return result, nil
}

func (s *Session) precheck(ctx context.Context, amountSol float64, choice int) error {
	const op = "client.Session.precheck"

	if amountSol < s.minBet || amountSol > s.maxBet {
		return fmt.Errorf("%s: bet must be between %g and %g SOL", op, s.minBet, s.maxBet)
	}

	if choice != config.Heads && choice != config.Tails {
		return fmt.Errorf("%s: choice must be heads (0) or tails (1)", op)
	}

	balance, err := s.ledger.AddressBalance(ctx, s.wallet.Address())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if balance < converter.SolToLamports(amountSol) {
		return fmt.Errorf("%s: %w", op, ErrInsufficientBalance)
	}

	return nil
}

// placeBet runs Idle -> BetSubmitted -> BetConfirmed.
func (s *Session) placeBet(ctx context.Context, log *slog.Logger, amountSol float64) (solana.Signature, error) {
	const op = "client.Session.placeBet"

	info, err := s.api.HouseWallet(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	houseAddr, err := solana.PublicKeyFromBase58(info.Address)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	blockhash, err := s.ledger.RecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.wallet.BuildTransfer(houseAddr, converter.SolToLamports(amountSol), blockhash)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	sig, err := s.ledger.SubmitTransfer(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	s.setState(StateBetSubmitted)
	log.Info("bet transfer submitted", slog.String("signature", sig.String()))

	if err = s.ledger.ConfirmTransfer(ctx, sig, s.confirmTimeout); err != nil {
		return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
	}

	s.setState(StateBetConfirmed)
	log.Info("bet transfer confirmed")

	return sig, nil
}

// adopt validates the record's internal consistency and takes it as displayed
// truth. A mismatch is an internal fault to surface, never something to fix
// up locally.
func (s *Session) adopt(resp *SettleResponse, choice int, betSig solana.Signature) (*Result, error) {
	const op = "client.Session.adopt"

	if resp.Result == nil || resp.Won == nil {
		if resp.Error != "" {
			return nil, fmt.Errorf("%s: settlement rejected: %s", op, settleErrText(resp))
		}

		return nil, fmt.Errorf("%s: %w: no outcome in response", op, ErrInternalConsistency)
	}

	result := *resp.Result
	won := *resp.Won

	if result != config.Heads && result != config.Tails {
		return nil, fmt.Errorf("%s: %w: result %d", op, ErrInternalConsistency, result)
	}

	if won != (choice == result) {
		return nil, fmt.Errorf("%s: %w: won=%t choice=%d result=%d",
			op, ErrInternalConsistency, won, choice, result)
	}

	if resp.ServerSeed != "" {
		disclosed := fairness.Outcome{
			Value:      result,
			ServerSeed: resp.ServerSeed,
			Hash:       resp.ResultHash,
			Nonce:      resp.Nonce,
		}
		if !fairness.Verify(disclosed) {
			return nil, fmt.Errorf("%s: %w: fairness disclosure does not verify", op, ErrInternalConsistency)
		}
	}

	paid := resp.Success && resp.Signature != ""

	message := resp.Message
	if message == "" {
		message = settleErrText(resp)
	}

	return &Result{
		Won:          won,
		Result:       result,
		Payout:       resp.Payout,
		PayoutSig:    resp.Signature,
		Paid:         paid,
		Message:      message,
		BetSignature: betSig,
	}, nil
}

func settleErrText(resp *SettleResponse) string {
	if resp.Details != "" {
		return fmt.Sprintf("%s: %s", resp.Error, resp.Details)
	}

	if resp.Error != "" {
		return resp.Error
	}

	return "settlement failed"
}

// Describe renders a terminal message for a failed flip, distinguishing
// cancellation, balance trouble and network trouble the way players expect.
func Describe(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "transaction cancelled"
	case errors.Is(err, ErrFlipInProgress):
		return "transaction in progress, please wait"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient SOL balance for this bet"
	case errors.Is(err, ErrInternalConsistency):
		return "settlement result inconsistent, please report this"
	case IsTransient(err):
		return "network error, please try again"
	case errors.Is(err, chain.ErrTransferRejected), errors.Is(err, chain.ErrTransferFailed):
		return "transfer failed, this wager is void"
	default:
		return "transaction failed: " + err.Error()
	}
}
