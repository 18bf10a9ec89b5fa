package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// SettlementRecord is the single source of truth for a resolved wager. The
// client renders it verbatim and never recomputes win/loss from local state.
// PayoutSignature stays zero unless a payout was submitted and confirmed.
type SettlementRecord struct {
	UUID            uuid.UUID        `json:"uuid"`
	Wager           Wager            `json:"wager"`
	Result          int              `json:"result"`
	Won             bool             `json:"won"`
	Payout          uint64           `json:"payout"`
	PayoutSignature solana.Signature `json:"payout_signature"`
	ServerSeed      string           `json:"server_seed"`
	ResultHash      string           `json:"result_hash"`
	Nonce           int              `json:"nonce"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Paid reports whether the payout actually left the custodial wallet.
func (r *SettlementRecord) Paid() bool {
	return r.PayoutSignature != (solana.Signature{})
}
