package config

// Coin sides as wire values. 0 is heads, 1 is tails, matching the web client.
const (
	Heads = 0
	Tails = 1
)
