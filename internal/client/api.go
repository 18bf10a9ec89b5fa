package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"coinflip/internal/chain"
)

// API talks to the settlement service. Thin JSON client, no retries; retry
// policy belongs to the session.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &API{
		baseURL: baseURL,
		http:    httpClient,
	}
}

type HouseWalletInfo struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type SettleRequest struct {
	UserAddress  string  `json:"user_address"`
	Amount       float64 `json:"amount"`
	Choice       int     `json:"choice"`
	BetSignature string  `json:"bet_signature,omitempty"`
	RequestID    string  `json:"request_id,omitempty"`
}

// SettleResponse is the wire form of the settlement record plus the error
// envelope. Result and Won are pointers: the service includes them on some
// failures too (payout withheld), and absence must be distinguishable from
// zero values.
type SettleResponse struct {
	Success    bool    `json:"success"`
	Status     int     `json:"status"`
	Error      string  `json:"error"`
	Details    string  `json:"details"`
	Payout     float64 `json:"payout"`
	Signature  string  `json:"signature"`
	Result     *int    `json:"result"`
	Won        *bool   `json:"won"`
	ServerSeed string  `json:"server_seed"`
	ResultHash string  `json:"result_hash"`
	Nonce      int     `json:"nonce"`
	Message    string  `json:"message"`
}

func (a *API) HouseWallet(ctx context.Context) (*HouseWalletInfo, error) {
	const op = "client.API.HouseWallet"

	var info HouseWalletInfo
	if err := a.get(ctx, "/api/house-wallet", &info); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &info, nil
}

func (a *API) Settle(ctx context.Context, req SettleRequest) (*SettleResponse, error) {
	const op = "client.API.Settle"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/api/process-game", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, chain.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	var resp SettleResponse
	if err = json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}

func (a *API) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", chain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
