package model

import (
	"github.com/gagliardetto/solana-go"
)

// Wager is one user's stake for a single flip. Immutable once submitted for
// settlement; amounts are lamports.
type Wager struct {
	UserAddress solana.PublicKey `json:"user_address"`
	Amount      uint64           `json:"amount"`
	Choice      int              `json:"choice"`
}
