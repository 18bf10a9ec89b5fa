package stats

import (
	"net/http"

	"coinflip/internal/http-server/model"
	"coinflip/internal/lib/converter"
	"coinflip/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/render"
	"golang.org/x/exp/slog"
)

type Response struct {
	TotalGames  int64   `json:"total_games"`
	TotalVolume float64 `json:"total_volume"`
	HouseDelta  float64 `json:"house_delta"`
}

type HealthResponse struct {
	Status       string               `json:"status"`
	HouseAddress string               `json:"house_address"`
	Ledger       model.LedgerSnapshot `json:"ledger"`
}

type Handler struct {
	log          *slog.Logger
	house        *repository.HouseLedger
	houseAddress solana.PublicKey
}

func NewHandler(log *slog.Logger, house *repository.HouseLedger, houseAddress solana.PublicKey) *Handler {
	return &Handler{
		log:          log,
		house:        house,
		houseAddress: houseAddress,
	}
}

// Stats reports the in-memory totals in SOL, the way players read them.
func (h *Handler) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := h.house.Snapshot()

		render.JSON(w, r, Response{
			TotalGames:  snap.TotalGames,
			TotalVolume: converter.LamportsToSol(snap.TotalVolume),
			HouseDelta:  converter.LamportsToSolSigned(snap.HouseDelta),
		})
	}
}

func (h *Handler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, HealthResponse{
			Status:       "healthy",
			HouseAddress: h.houseAddress.String(),
			Ledger:       h.house.Snapshot(),
		})
	}
}
