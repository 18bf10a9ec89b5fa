package repository

import (
	"sync"

	"coinflip/internal/http-server/model"
)

// HouseLedger keeps the running totals for the current process: games played,
// lamports wagered, and the net house movement. State is session-scoped by
// design; nothing survives a restart.
//
// Mutations happen under one mutex. The settlement coordinator additionally
// serializes the wider "check balance, pay, record" span with its own lock;
// this mutex only protects the counters from concurrent snapshot readers.
type HouseLedger struct {
	mu          sync.RWMutex
	totalGames  int64
	totalVolume uint64
	houseDelta  int64
}

func NewHouseLedger() *HouseLedger {
	return &HouseLedger{}
}

// RecordGame books one settled wager. Every settlement attempt lands here
// exactly once, win or lose, whether or not the payout could be funded:
//
//   - lost wager: house keeps the stake, delta += amount
//   - won and paid: house pays out net of the stake, delta -= amount
//   - won but payout withheld: games and volume still count, delta untouched
func (l *HouseLedger) RecordGame(amount uint64, won bool, paidOut bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalGames++
	l.totalVolume += amount

	switch {
	case won && paidOut:
		l.houseDelta -= int64(amount)
	case !won:
		l.houseDelta += int64(amount)
	}
}

// Fund books an operator top-up of the custodial wallet.
func (l *HouseLedger) Fund(amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.houseDelta += int64(amount)
}

func (l *HouseLedger) Snapshot() model.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return model.LedgerSnapshot{
		TotalGames:  l.totalGames,
		TotalVolume: l.totalVolume,
		HouseDelta:  l.houseDelta,
	}
}
