package flip

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"coinflip/internal/chain"
	"coinflip/internal/http-server/handlers/event"
	"coinflip/internal/http-server/handlers/job"
	"coinflip/internal/http-server/model"
	resp "coinflip/internal/lib/api/response"
	"coinflip/internal/lib/converter"
	"coinflip/internal/lib/logger/sl"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

type Request struct {
	UserAddress  string  `json:"user_address" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Choice       *int    `json:"choice" validate:"required,min=0,max=1"`
	BetSignature string  `json:"bet_signature,omitempty"`
	RequestID    string  `json:"request_id,omitempty"`
}

type Response struct {
	Success    bool    `json:"success"`
	Payout     float64 `json:"payout"`
	Signature  string  `json:"signature,omitempty"`
	Result     int     `json:"result"`
	Won        bool    `json:"won"`
	ServerSeed string  `json:"server_seed"`
	ResultHash string  `json:"result_hash"`
	Nonce      int     `json:"nonce"`
	Message    string  `json:"message"`
}

// FailResponse still discloses the outcome when the wager resolved but the
// payout could not be delivered; the client must be able to tell "you won
// but payout failed" apart from "you lost".
type FailResponse struct {
	resp.Response
	Result *int  `json:"result,omitempty"`
	Won    *bool `json:"won,omitempty"`
}

type Handler struct {
	log       *slog.Logger
	validator *validator.Validate
	settler   *Settler
	publisher event.Publisher
	jobs      *job.Dispatcher
}

func NewHandler(
	log *slog.Logger,
	settler *Settler,
	publisher event.Publisher,
	jobs *job.Dispatcher,
) *Handler {
	return &Handler{
		log:       log,
		validator: validator.New(),
		settler:   settler,
		publisher: publisher,
		jobs:      jobs,
	}
}

func (h *Handler) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.flip.New"

		var req Request

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

		log.Info("request body decoded", slog.Any("request", req))

		if err = h.validator.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		userAddr, err := solana.PublicKeyFromBase58(req.UserAddress)
		if err != nil {
			log.Error("invalid user address", sl.Err(err))

			render.JSON(w, r, resp.Error("invalid user address", http.StatusBadRequest))

			return
		}

		var betSig solana.Signature
		if req.BetSignature != "" {
			betSig, err = solana.SignatureFromBase58(req.BetSignature)
			if err != nil {
				log.Error("invalid bet signature", sl.Err(err))

				render.JSON(w, r, resp.Error("invalid bet signature", http.StatusBadRequest))

				return
			}
		}

		wager := model.Wager{
			UserAddress: userAddr,
			Amount:      converter.SolToLamports(req.Amount),
			Choice:      *req.Choice,
		}

		record, err := h.settler.Settle(r.Context(), wager, betSig, req.RequestID)

		if record != nil {
			h.publishSettlement(record)
		}

		if err != nil {
			h.renderError(w, r, log, record, err)

			return
		}

		render.JSON(w, r, Response{
			Success:    true,
			Payout:     converter.LamportsToSol(record.Payout),
			Signature:  signatureString(record),
			Result:     record.Result,
			Won:        record.Won,
			ServerSeed: record.ServerSeed,
			ResultHash: record.ResultHash,
			Nonce:      record.Nonce,
			Message:    resultMessage(record),
		})
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, record *model.SettlementRecord, err error) {
	log.Error("settlement failed", sl.Err(err))

	switch {
	case errors.Is(err, ErrInvalidWager):
		render.JSON(w, r, resp.Error("invalid wager", http.StatusBadRequest))
	case errors.Is(err, ErrBetNotConfirmed):
		render.JSON(w, r, resp.Error("bet transfer not confirmed", http.StatusBadRequest))
	case errors.Is(err, ErrBetMismatch):
		render.JSON(w, r, resp.Error("bet transfer does not match wager", http.StatusBadRequest))
	case errors.Is(err, ErrBetAlreadySpent):
		render.JSON(w, r, resp.Error("bet transfer already spent", http.StatusBadRequest))
	case record != nil && errors.Is(err, ErrInsufficientHouseBalance):
		render.JSON(w, r, FailResponse{
			Response: resp.ErrorWithDetails(
				"insufficient house balance",
				"you won but the payout could not be sent",
				http.StatusBadRequest),
			Result: &record.Result,
			Won:    &record.Won,
		})
	case record != nil:
		// resolved, payout delivery failed on the network side
		render.JSON(w, r, FailResponse{
			Response: resp.ErrorWithDetails(
				"payout delivery failed",
				"you won but the payout could not be sent",
				http.StatusBadGateway),
			Result: &record.Result,
			Won:    &record.Won,
		})
	case errors.Is(err, chain.ErrNetwork):
		render.JSON(w, r, resp.Error("ledger network unavailable", http.StatusBadGateway))
	default:
		render.JSON(w, r, resp.Error("failed to process game", http.StatusInternalServerError))
	}
}

func (h *Handler) publishSettlement(record *model.SettlementRecord) {
	data := map[string]interface{}{
		"uuid":         record.UUID.String(),
		"user_address": record.Wager.UserAddress.String(),
		"amount":       converter.LamportsToSol(record.Wager.Amount),
		"choice":       record.Wager.Choice,
		"result":       record.Result,
		"won":          record.Won,
		"payout":       converter.LamportsToSol(record.Payout),
		"paid":         record.Paid(),
		"created_at":   record.CreatedAt.Format(time.RFC3339),
	}

	h.jobs.Dispatch(&job.SendEventJob{
		EventMessage: event.Message{
			Channel: "flip-channel",
			Event:   "settlement-event",
			Data:    data,
		},
		Publisher: h.publisher,
	}, 0)
}

func signatureString(record *model.SettlementRecord) string {
	if !record.Paid() {
		return ""
	}

	return record.PayoutSignature.String()
}

func resultMessage(record *model.SettlementRecord) string {
	if !record.Won {
		return "better luck next time"
	}

	addr := record.Wager.UserAddress.String()

	return fmt.Sprintf("payout of %g SOL sent to %s...",
		converter.LamportsToSol(record.Payout), addr[:8])
}
