package repository

import (
	"github.com/gagliardetto/solana-go"
	"github.com/patrickmn/go-cache"
)

// BetRegistry remembers which bet transfers have already settled a wager.
// Spent signatures never expire; like the house ledger, the registry is
// session-scoped and resets with the process.
type BetRegistry struct {
	cache *cache.Cache
}

func NewBetRegistry() *BetRegistry {
	return &BetRegistry{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Spend marks sig as consumed and reports whether this call was the one that
// consumed it. The check and the mark are a single atomic step, so two
// concurrent settlements against one signature cannot both pass.
func (b *BetRegistry) Spend(sig solana.Signature) bool {
	return b.cache.Add(sig.String(), struct{}{}, cache.NoExpiration) == nil
}
