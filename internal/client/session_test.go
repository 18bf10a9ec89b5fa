package client

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"coinflip/internal/chain"
	"coinflip/internal/config"
	"coinflip/internal/http-server/handlers/fairness"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var (
	testHouseAddr  = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	testPlayerAddr = solana.MustPublicKeyFromBase58("Config1111111111111111111111111111111111111")
)

type fakeLedger struct {
	balance    uint64
	balanceErr error
	submitErr  error
	confirmErr error
	submitted  int
	confirmed  int
}

func (f *fakeLedger) AddressBalance(_ context.Context, _ solana.PublicKey) (uint64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}

	return f.balance, nil
}

func (f *fakeLedger) RecentBlockhash(_ context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (f *fakeLedger) SubmitTransfer(_ context.Context, _ *solana.Transaction) (solana.Signature, error) {
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}

	f.submitted++

	var sig solana.Signature
	sig[0] = byte(f.submitted)

	return sig, nil
}

func (f *fakeLedger) ConfirmTransfer(_ context.Context, _ solana.Signature, _ time.Duration) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}

	f.confirmed++

	return nil
}

type fakeWallet struct{}

func (f *fakeWallet) Address() solana.PublicKey { return testPlayerAddr }

func (f *fakeWallet) BuildTransfer(_ solana.PublicKey, _ uint64, _ solana.Hash) (*solana.Transaction, error) {
	return &solana.Transaction{}, nil
}

// fakeAPI replays a scripted settlement response, tracking session order:
// the bet must be confirmed before settlement is requested.
type fakeAPI struct {
	ledger     *fakeLedger
	resp       *SettleResponse
	settleErr  error
	settleReq  SettleRequest
	settleSeen bool
	orderFault bool
}

func (f *fakeAPI) HouseWallet(_ context.Context) (*HouseWalletInfo, error) {
	return &HouseWalletInfo{Address: testHouseAddr.String(), Balance: 10}, nil
}

func (f *fakeAPI) Settle(_ context.Context, req SettleRequest) (*SettleResponse, error) {
	f.settleSeen = true
	f.settleReq = req

	if f.ledger != nil && f.ledger.confirmed == 0 {
		f.orderFault = true
	}

	if f.settleErr != nil {
		return nil, f.settleErr
	}

	return f.resp, nil
}

func newTestSession(ledger *fakeLedger, api SettlementAPI) *Session {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewSession(log, ledger, &fakeWallet{}, api,
		config.GameConfig{MinBet: 0.1, MaxBet: 1}, time.Second)
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func wonResponse(choice int) *SettleResponse {
	return &SettleResponse{
		Success:   true,
		Payout:    0.2,
		Signature: "payout-sig",
		Result:    intPtr(choice),
		Won:       boolPtr(true),
		Message:   "payout sent",
	}
}

func TestSessionFlipHappyPath(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000}
	api := &fakeAPI{ledger: ledger, resp: wonResponse(config.Heads)}
	session := newTestSession(ledger, api)

	result, err := session.Flip(context.Background(), 0.1, config.Heads)
	require.NoError(t, err)

	assert.True(t, result.Won)
	assert.True(t, result.Paid)
	assert.Equal(t, config.Heads, result.Result)
	assert.InDelta(t, 0.2, result.Payout, 1e-9)
	assert.NotEqual(t, solana.Signature{}, result.BetSignature)

	assert.Equal(t, 1, ledger.submitted, "exactly one bet transfer")
	assert.False(t, api.orderFault, "settlement must wait for bet confirmation")
	assert.Equal(t, testPlayerAddr.String(), api.settleReq.UserAddress)
	assert.NotEmpty(t, api.settleReq.BetSignature)
	assert.NotEmpty(t, api.settleReq.RequestID)

	assert.Equal(t, StateIdle, session.State())
}

func TestSessionFlipLoss(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000}
	api := &fakeAPI{
		ledger: ledger,
		resp: &SettleResponse{
			Success: true,
			Result:  intPtr(config.Tails),
			Won:     boolPtr(false),
			Message: "better luck next time",
		},
	}
	session := newTestSession(ledger, api)

	result, err := session.Flip(context.Background(), 0.1, config.Heads)
	require.NoError(t, err)

	assert.False(t, result.Won)
	assert.False(t, result.Paid)
	assert.Zero(t, result.Payout)
}

func TestSessionPrecheckRejects(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		choice int
		ledger *fakeLedger
	}{
		{name: "BelowMinimum", amount: 0.05, choice: 0, ledger: &fakeLedger{balance: 1_000_000_000}},
		{name: "AboveMaximum", amount: 1.5, choice: 0, ledger: &fakeLedger{balance: 10_000_000_000}},
		{name: "BadChoice", amount: 0.1, choice: 3, ledger: &fakeLedger{balance: 1_000_000_000}},
		{name: "InsufficientBalance", amount: 0.5, choice: 0, ledger: &fakeLedger{balance: 100_000_000}},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{ledger: tc.ledger}
			session := newTestSession(tc.ledger, api)

			_, err := session.Flip(context.Background(), tc.amount, tc.choice)
			require.Error(t, err)

			assert.Equal(t, 0, tc.ledger.submitted, "no transfer may leave the wallet")
			assert.False(t, api.settleSeen)
			assert.Equal(t, StateErrored, session.State())
		})
	}
}

func TestSessionConfirmTimeoutIsTransient(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000, confirmErr: chain.ErrConfirmTimeout}
	api := &fakeAPI{ledger: ledger}
	session := newTestSession(ledger, api)

	_, err := session.Flip(context.Background(), 0.1, config.Heads)
	require.Error(t, err)

	assert.True(t, IsTransient(err))
	assert.False(t, api.settleSeen, "no settlement without a confirmed bet")
	assert.Equal(t, StateErrored, session.State())
}

func TestSessionNetworkErrorIsTransient(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000}
	api := &fakeAPI{ledger: ledger, settleErr: fmt.Errorf("settle: %w", chain.ErrNetwork)}
	session := newTestSession(ledger, api)

	_, err := session.Flip(context.Background(), 0.1, config.Heads)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

// The session adopts the service's verdict; a record that contradicts itself
// is surfaced as an internal fault rather than silently repaired.
func TestSessionConsistencyFault(t *testing.T) {
	cases := []struct {
		name string
		resp *SettleResponse
	}{
		{
			name: "WonContradictsResult",
			resp: &SettleResponse{
				Success: true,
				Result:  intPtr(config.Tails),
				Won:     boolPtr(true), // choice below is heads
			},
		},
		{
			name: "ResultOutOfRange",
			resp: &SettleResponse{
				Success: true,
				Result:  intPtr(7),
				Won:     boolPtr(false),
			},
		},
		{
			name: "NoOutcome",
			resp: &SettleResponse{Success: true},
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ledger := &fakeLedger{balance: 1_000_000_000}
			api := &fakeAPI{ledger: ledger, resp: tc.resp}
			session := newTestSession(ledger, api)

			_, err := session.Flip(context.Background(), 0.1, config.Heads)
			require.ErrorIs(t, err, ErrInternalConsistency)
			assert.Equal(t, StateErrored, session.State())
		})
	}
}

func TestSessionVerifiesFairnessDisclosure(t *testing.T) {
	outcome, err := fairness.NewProvable().Flip()
	require.NoError(t, err)

	t.Run("ValidDisclosure", func(t *testing.T) {
		ledger := &fakeLedger{balance: 1_000_000_000}
		api := &fakeAPI{
			ledger: ledger,
			resp: &SettleResponse{
				Success:    true,
				Result:     intPtr(outcome.Value),
				Won:        boolPtr(outcome.Value == config.Heads),
				Signature:  "payout-sig",
				ServerSeed: outcome.ServerSeed,
				ResultHash: outcome.Hash,
				Nonce:      outcome.Nonce,
			},
		}
		session := newTestSession(ledger, api)

		_, err := session.Flip(context.Background(), 0.1, config.Heads)
		require.NoError(t, err)
	})

	t.Run("TamperedSeed", func(t *testing.T) {
		ledger := &fakeLedger{balance: 1_000_000_000}
		api := &fakeAPI{
			ledger: ledger,
			resp: &SettleResponse{
				Success:    true,
				Result:     intPtr(outcome.Value),
				Won:        boolPtr(outcome.Value == config.Heads),
				ServerSeed: "00000000000000000000000000000000",
				ResultHash: outcome.Hash,
				Nonce:      outcome.Nonce,
			},
		}
		session := newTestSession(ledger, api)

		_, err := session.Flip(context.Background(), 0.1, config.Heads)
		require.ErrorIs(t, err, ErrInternalConsistency)
	})
}

func TestSessionRejectsConcurrentFlips(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000}

	started := make(chan struct{})
	release := make(chan struct{})

	api := &blockingAPI{
		inner:   &fakeAPI{ledger: ledger, resp: wonResponse(config.Heads)},
		started: started,
		release: release,
	}
	session := newTestSession(ledger, api)

	done := make(chan error, 1)
	go func() {
		_, err := session.Flip(context.Background(), 0.1, config.Heads)
		done <- err
	}()

	<-started

	_, err := session.Flip(context.Background(), 0.1, config.Heads)
	assert.ErrorIs(t, err, ErrFlipInProgress)

	close(release)
	require.NoError(t, <-done)
}

type blockingAPI struct {
	inner   *fakeAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) HouseWallet(ctx context.Context) (*HouseWalletInfo, error) {
	return b.inner.HouseWallet(ctx)
}

func (b *blockingAPI) Settle(ctx context.Context, req SettleRequest) (*SettleResponse, error) {
	close(b.started)
	<-b.release

	return b.inner.Settle(ctx, req)
}
