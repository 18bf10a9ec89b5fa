package repository

import (
	"time"

	"coinflip/internal/http-server/model"

	"github.com/patrickmn/go-cache"
)

// SettlementCache deduplicates settlement requests by client request id. A
// retried call after a network hiccup must observe the already-generated
// outcome instead of rolling a second one for the same perceived wager.
type SettlementCache struct {
	cache *cache.Cache
}

func NewSettlementCache(ttl time.Duration) *SettlementCache {
	return &SettlementCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *SettlementCache) Get(requestID string) (*model.SettlementRecord, bool) {
	if requestID == "" {
		return nil, false
	}

	v, found := s.cache.Get(requestID)
	if !found {
		return nil, false
	}

	return v.(*model.SettlementRecord), true
}

func (s *SettlementCache) Put(requestID string, record *model.SettlementRecord) {
	if requestID == "" {
		return
	}

	s.cache.Set(requestID, record, cache.DefaultExpiration)
}
