package chain

import "errors"

var (
	// ErrNetwork marks transport-level failures talking to the RPC node.
	// Callers may retry with backoff; the adapter itself never retries.
	ErrNetwork = errors.New("ledger network unreachable")

	// ErrTransferRejected means the node refused the transaction outright
	// (bad signature, insufficient funds, stale blockhash). Fatal for the
	// wager it belongs to.
	ErrTransferRejected = errors.New("transfer rejected by network")

	// ErrConfirmTimeout means finality was not observed within the caller's
	// deadline. The transfer may still land later.
	ErrConfirmTimeout = errors.New("transfer confirmation timed out")

	// ErrTransferFailed means the network reported the transaction as
	// executed with an error.
	ErrTransferFailed = errors.New("transfer failed on chain")
)
