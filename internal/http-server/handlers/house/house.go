package house

import (
	"context"
	"net/http"
	"time"

	"coinflip/internal/http-server/handlers/event"
	"coinflip/internal/http-server/handlers/job"
	resp "coinflip/internal/lib/api/response"
	"coinflip/internal/lib/converter"
	"coinflip/internal/lib/logger/sl"
	"coinflip/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
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

type InfoResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type FundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type FundResponse struct {
	Success    bool    `json:"success"`
	Amount     float64 `json:"amount"`
	Signature  string  `json:"signature"`
	NewBalance float64 `json:"new_balance,omitempty"`
}

type Handler struct {
	log            *slog.Logger
	validator      *validator.Validate
	ledger         Ledger
	wallet         Wallet
	house          *repository.HouseLedger
	publisher      event.Publisher
	jobs           *job.Dispatcher
	confirmTimeout time.Duration
}

func NewHandler(
	log *slog.Logger,
	ledger Ledger,
	wallet Wallet,
	house *repository.HouseLedger,
	publisher event.Publisher,
	jobs *job.Dispatcher,
	confirmTimeout time.Duration,
) *Handler {
	return &Handler{
		log:            log,
		validator:      validator.New(),
		ledger:         ledger,
		wallet:         wallet,
		house:          house,
		publisher:      publisher,
		jobs:           jobs,
		confirmTimeout: confirmTimeout,
	}
}

// Info tells clients where to send their bet transfers.
func (h *Handler) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.house.Info"

		log := h.log.With(slog.String("op", op))

		balance, err := h.ledger.AddressBalance(r.Context(), h.wallet.Address())
		if err != nil {
			log.Error("failed to fetch house balance", sl.Err(err))

			render.JSON(w, r, resp.Error("ledger network unavailable", http.StatusBadGateway))

			return
		}

		render.JSON(w, r, InfoResponse{
			Address: h.wallet.Address().String(),
			Balance: converter.LamportsToSol(balance),
		})
	}
}

// Fund is an ops/test helper, not part of the settlement protocol: it issues
// a confirmed self-transfer so devnet tooling can see the wallet is alive,
// and books the amount into the ledger.
func (h *Handler) Fund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.house.Fund"

		var req FundRequest

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		if err = h.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		lamports := converter.SolToLamports(req.Amount)

		blockhash, err := h.ledger.RecentBlockhash(r.Context())
		if err != nil {
			log.Error("failed to fetch blockhash", sl.Err(err))

			render.JSON(w, r, resp.Error("ledger network unavailable", http.StatusBadGateway))

			return
		}

		tx, err := h.wallet.BuildTransfer(h.wallet.Address(), lamports, blockhash)
		if err != nil {
			log.Error("failed to build funding transfer", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to fund house wallet", http.StatusInternalServerError))

			return
		}

		sig, err := h.ledger.SubmitTransfer(r.Context(), tx)
		if err != nil {
			log.Error("funding transfer rejected", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to fund house wallet", http.StatusBadGateway))

			return
		}

		if err = h.ledger.ConfirmTransfer(r.Context(), sig, h.confirmTimeout); err != nil {
			log.Error("funding transfer not confirmed", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to fund house wallet", http.StatusBadGateway))

			return
		}

		h.house.Fund(lamports)

		log.Info("house wallet funded",
			slog.String("signature", sig.String()),
			sl.Lamports("amount", lamports))

		h.jobs.Dispatch(&job.SendEventJob{
			EventMessage: event.Message{
				Channel: "flip-channel",
				Event:   "fund-event",
				Data: map[string]interface{}{
					"amount":    req.Amount,
					"signature": sig.String(),
				},
			},
			Publisher: h.publisher,
		}, 0)

		fundResp := FundResponse{
			Success:   true,
			Amount:    req.Amount,
			Signature: sig.String(),
		}

		// Funding already succeeded at this point. The live balance is a
		// courtesy; when the read fails the field is simply omitted.
		newBalance, err := h.ledger.AddressBalance(r.Context(), h.wallet.Address())
		if err != nil {
			log.Warn("balance read after funding failed", sl.Err(err))
		} else {
			fundResp.NewBalance = converter.LamportsToSol(newBalance)
		}

		render.JSON(w, r, fundResp)
	}
}
