package model

// LedgerSnapshot is a point-in-time view of the in-memory house ledger.
// TotalVolume is lamports wagered across all settled games; HouseDelta is the
// net lamport movement from the house's perspective and can go negative.
type LedgerSnapshot struct {
	TotalGames  int64  `json:"total_games"`
	TotalVolume uint64 `json:"total_volume"`
	HouseDelta  int64  `json:"house_delta"`
}
