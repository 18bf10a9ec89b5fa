package converter

import (
	"github.com/shopspring/decimal"
)

// LamportsPerSol mirrors the chain's fixed decimal scale: 1 SOL = 1e9 lamports.
const LamportsPerSol = 1_000_000_000

var lamportsPerSol = decimal.NewFromInt(LamportsPerSol)

// SolToLamports converts a user-facing SOL amount to lamports without
// binary float drift (0.1 SOL must be exactly 100_000_000 lamports).
func SolToLamports(amount float64) uint64 {
	d := decimal.NewFromFloat(amount).Mul(lamportsPerSol)

	return uint64(d.IntPart())
}

func LamportsToSol(lamports uint64) float64 {
	f, _ := decimal.NewFromInt(int64(lamports)).Div(lamportsPerSol).Float64()

	return f
}

// LamportsToSolSigned is LamportsToSol for house balance deltas, which can
// go negative.
func LamportsToSolSigned(lamports int64) float64 {
	f, _ := decimal.NewFromInt(lamports).Div(lamportsPerSol).Float64()

	return f
}
