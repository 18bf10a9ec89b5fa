package flip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coinflip/internal/chain"
	"coinflip/internal/config"
	"coinflip/internal/http-server/handlers/fairness"
	"coinflip/internal/http-server/model"
	"coinflip/internal/lib/converter"
	"coinflip/internal/lib/logger/sl"
	"coinflip/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Ledger is the slice of the chain adapter the coordinator needs.
type Ledger interface {
	AddressBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	RecentBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitTransfer(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransfer(ctx context.Context, sig solana.Signature, timeout time.Duration) error
	TransferDetails(ctx context.Context, sig solana.Signature) (*chain.TransferInfo, error)
}

// HouseWallet signs payouts from the custodial keypair.
type HouseWallet interface {
	Address() solana.PublicKey
	BuildTransfer(to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error)
}

// Settler is the settlement coordinator: it owns outcome determination,
// payout issuance and house ledger accounting for every wager.
type Settler struct {
	log       *slog.Logger
	ledger    Ledger
	wallet    HouseWallet
	house     *repository.HouseLedger
	generator fairness.Generator
	settled   *repository.SettlementCache
	bets      *repository.BetRegistry

	minBet         uint64
	maxBet         uint64
	multiplier     uint64
	verifyBet      bool
	confirmTimeout time.Duration

	// mu serializes the win path: check balance, submit payout, record.
	// Without it two concurrent wins could both pass the balance check
	// against funds sufficient for only one payout.
	mu sync.Mutex
}

func NewSettler(
	log *slog.Logger,
	ledger Ledger,
	wallet HouseWallet,
	house *repository.HouseLedger,
	generator fairness.Generator,
	settled *repository.SettlementCache,
	bets *repository.BetRegistry,
	game config.GameConfig,
	confirmTimeout time.Duration,
) *Settler {
	return &Settler{
		log:            log,
		ledger:         ledger,
		wallet:         wallet,
		house:          house,
		generator:      generator,
		settled:        settled,
		bets:           bets,
		minBet:         converter.SolToLamports(game.MinBet),
		maxBet:         converter.SolToLamports(game.MaxBet),
		multiplier:     game.PayoutMultiplier,
		verifyBet:      game.VerifyBet,
		confirmTimeout: confirmTimeout,
	}
}

// Settle resolves one wager: validates it, generates the outcome exactly once,
// pays out on a win and books the game to the house ledger. The returned
// record is never mutated afterwards.
//
// A non-nil record can come back together with a non-nil error when the wager
// resolved but the payout could not be delivered; the outcome is disclosed
// either way. The bet signature is evidence supplied by the caller and never
// feeds outcome determination.
func (s *Settler) Settle(ctx context.Context, wager model.Wager, betSig solana.Signature, requestID string) (*model.SettlementRecord, error) {
	const op = "handlers.flip.Settle"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user", wager.UserAddress.String()),
		sl.Lamports("amount", wager.Amount),
	)

	// A retried request must observe the original outcome, not roll a new one.
	if record, found := s.settled.Get(requestID); found {
		log.Info("settlement replayed from cache", slog.String("request_id", requestID))

		if record.Won && !record.Paid() {
			return record, ErrInsufficientHouseBalance
		}

		return record, nil
	}

	if err := s.validate(wager); err != nil {
		return nil, err
	}

	if err := s.checkBetTransfer(ctx, log, wager, betSig); err != nil {
		return nil, err
	}

	// Exactly one generator invocation per accepted request.
	outcome, err := s.generator.Flip()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The single trusted equation. No code path may set Won another way.
	won := wager.Choice == outcome.Value

	record := &model.SettlementRecord{
		UUID:       uuid.New(),
		Wager:      wager,
		Result:     outcome.Value,
		Won:        won,
		ServerSeed: outcome.ServerSeed,
		ResultHash: outcome.Hash,
		Nonce:      outcome.Nonce,
		CreatedAt:  time.Now(),
	}

	log.Info("wager resolved",
		slog.Int("choice", wager.Choice),
		slog.Int("result", outcome.Value),
		slog.Bool("won", won))

	if !won {
		s.house.RecordGame(wager.Amount, false, false)
		s.settled.Put(requestID, record)

		return record, nil
	}

	record.Payout = wager.Amount * s.multiplier

	if err = s.payOut(ctx, log, record); err != nil {
		// The wager is resolved even though delivery failed: the game is
		// booked without a balance movement and the outcome stays disclosed.
		s.house.RecordGame(wager.Amount, true, false)
		s.settled.Put(requestID, record)

		return record, err
	}

	s.house.RecordGame(wager.Amount, true, true)
	s.settled.Put(requestID, record)

	return record, nil
}

func (s *Settler) validate(wager model.Wager) error {
	const op = "handlers.flip.validate"

	if wager.Amount < s.minBet || wager.Amount > s.maxBet {
		return fmt.Errorf("%s: %w: amount %d outside [%d, %d]",
			op, ErrInvalidWager, wager.Amount, s.minBet, s.maxBet)
	}

	if wager.Choice != config.Heads && wager.Choice != config.Tails {
		return fmt.Errorf("%s: %w: choice %d", op, ErrInvalidWager, wager.Choice)
	}

	return nil
}

// checkBetTransfer closes the legacy gap where settlement could be requested
// without ever transferring funds: the referenced transaction must be a
// landed transfer from the wagering user to the custodial address, covering
// the stake, and not used by an earlier wager. With verify_bet disabled the
// signature is logged and trusted, preserving the original behavior.
func (s *Settler) checkBetTransfer(ctx context.Context, log *slog.Logger, wager model.Wager, betSig solana.Signature) error {
	const op = "handlers.flip.checkBetTransfer"

	if !s.verifyBet {
		log.Info("bet transfer accepted unverified", slog.String("bet_signature", betSig.String()))

		return nil
	}

	if betSig == (solana.Signature{}) {
		return fmt.Errorf("%s: %w: no signature supplied", op, ErrBetNotConfirmed)
	}

	info, err := s.ledger.TransferDetails(ctx, betSig)
	if err != nil {
		if errors.Is(err, chain.ErrNetwork) {
			return fmt.Errorf("%s: %w", op, err)
		}

		return fmt.Errorf("%s: %w: %s", op, ErrBetNotConfirmed, err)
	}

	if !info.From.Equals(wager.UserAddress) || !info.To.Equals(s.wallet.Address()) {
		return fmt.Errorf("%s: %w: transfer parties do not match", op, ErrBetMismatch)
	}

	if info.Lamports < wager.Amount {
		return fmt.Errorf("%s: %w: transfer of %d lamports under wager of %d",
			op, ErrBetMismatch, info.Lamports, wager.Amount)
	}

	// Spending happens last, after all other checks, so a rejected request
	// does not burn the player's transfer.
	if !s.bets.Spend(betSig) {
		return fmt.Errorf("%s: %w", op, ErrBetAlreadySpent)
	}

	log.Info("bet transfer verified",
		slog.String("bet_signature", betSig.String()),
		sl.Lamports("transfer", info.Lamports))

	return nil
}

func (s *Settler) payOut(ctx context.Context, log *slog.Logger, record *model.SettlementRecord) error {
	const op = "handlers.flip.payOut"

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.ledger.AddressBalance(ctx, s.wallet.Address())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if balance < record.Payout {
		log.Warn("payout withheld",
			sl.Lamports("house_balance", balance),
			sl.Lamports("required", record.Payout))

		return fmt.Errorf("%s: %w", op, ErrInsufficientHouseBalance)
	}

	blockhash, err := s.ledger.RecentBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.wallet.BuildTransfer(record.Wager.UserAddress, record.Payout, blockhash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sig, err := s.ledger.SubmitTransfer(ctx, tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = s.ledger.ConfirmTransfer(ctx, sig, s.confirmTimeout); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	record.PayoutSignature = sig

	log.Info("payout sent",
		slog.String("signature", sig.String()),
		sl.Lamports("payout", record.Payout))

	return nil
}
