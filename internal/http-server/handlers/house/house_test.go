package house

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coinflip/internal/http-server/handlers/job"
	"coinflip/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var houseAddr = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

type fakeLedger struct {
	balance    uint64
	balanceErr error
	confirmErr error
	submitted  int
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
	f.submitted++

	var sig solana.Signature
	sig[0] = byte(f.submitted)

	return sig, nil
}

func (f *fakeLedger) ConfirmTransfer(_ context.Context, _ solana.Signature, _ time.Duration) error {
	return f.confirmErr
}

type fakeWallet struct{}

func (f *fakeWallet) Address() solana.PublicKey { return houseAddr }

func (f *fakeWallet) BuildTransfer(_ solana.PublicKey, _ uint64, _ solana.Hash) (*solana.Transaction, error) {
	return &solana.Transaction{}, nil
}

func newTestHandler(t *testing.T, ledger *fakeLedger) (*Handler, *repository.HouseLedger) {
	t.Helper()

	house := repository.NewHouseLedger()

	jobs := job.NewDispatcher(1, 8)
	jobs.Start()
	t.Cleanup(jobs.Stop)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewHandler(log, ledger, &fakeWallet{}, house, nil, jobs, time.Second), house
}

func TestInfo(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeLedger{balance: 5_000_000_000})

	req := httptest.NewRequest(http.MethodGet, "/api/house-wallet", nil)
	rr := httptest.NewRecorder()
	handler.Info().ServeHTTP(rr, req)

	var body InfoResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, houseAddr.String(), body.Address)
	assert.InDelta(t, 5.0, body.Balance, 1e-9)
}

func TestFund(t *testing.T) {
	ledger := &fakeLedger{balance: 7_000_000_000}
	handler, house := newTestHandler(t, ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/fund-house",
		bytes.NewBufferString(`{"amount": 2}`))
	rr := httptest.NewRecorder()
	handler.Fund().ServeHTTP(rr, req)

	var body FundResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.InDelta(t, 2.0, body.Amount, 1e-9)
	assert.NotEmpty(t, body.Signature)
	assert.InDelta(t, 7.0, body.NewBalance, 1e-9)
	assert.Equal(t, int64(2_000_000_000), house.Snapshot().HouseDelta)
}

// The live balance is a courtesy. When the read after funding fails, the
// field is omitted; it is never synthesized from the ledger delta.
func TestFundOmitsBalanceWhenReadFails(t *testing.T) {
	ledger := &fakeLedger{balanceErr: io.ErrUnexpectedEOF}
	handler, _ := newTestHandler(t, ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/fund-house",
		bytes.NewBufferString(`{"amount": 1}`))
	rr := httptest.NewRecorder()
	handler.Fund().ServeHTTP(rr, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "new_balance")
}

func TestFundRejectsBadAmount(t *testing.T) {
	ledger := &fakeLedger{balance: 1_000_000_000}
	handler, house := newTestHandler(t, ledger)

	for _, payload := range []string{`{}`, `{"amount": 0}`, `{"amount": -1}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/fund-house",
			bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		handler.Fund().ServeHTTP(rr, req)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

		assert.EqualValues(t, http.StatusBadRequest, body["status"], payload)
	}

	assert.Equal(t, 0, ledger.submitted)
	assert.Equal(t, int64(0), house.Snapshot().HouseDelta)
}
