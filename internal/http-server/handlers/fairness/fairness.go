package fairness

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"sync"

	"coinflip/internal/lib/random"
)

// Outcome is one coin flip result plus the material needed to audit it after
// the fact: revealing the seed lets anyone recompute the hash and the value.
type Outcome struct {
	Value      int    `json:"value"`
	ServerSeed string `json:"server_seed"`
	Hash       string `json:"hash"`
	Nonce      int    `json:"nonce"`
}

// Generator produces the fairness-critical bit. Implementations must be
// uniform over {0,1} and independent of anything a client can influence:
// no request data, no timing, no prior outcomes feed the value.
type Generator interface {
	Flip() (Outcome, error)
}

// Provable derives each flip from a fresh crypto-random server seed:
// value = low bit of HMAC-SHA512(seed, nonce). The seed is generated after
// the request is accepted and disclosed with the result, so the value is
// unpredictable beforehand and verifiable afterwards. The nonce is a process
// counter kept only for the audit trail.
type Provable struct {
	mu    sync.Mutex
	nonce int
}

func NewProvable() *Provable {
	return &Provable{}
}

func (g *Provable) Flip() (Outcome, error) {
	g.mu.Lock()
	nonce := g.nonce
	g.nonce++
	g.mu.Unlock()

	serverSeed := random.NewRandomString(64)

	h := hmac.New(sha512.New, []byte(serverSeed))
	h.Write([]byte(strconv.Itoa(nonce)))
	sum := h.Sum(nil)

	return Outcome{
		Value:      int(sum[0] & 1),
		ServerSeed: serverSeed,
		Hash:       hex.EncodeToString(sum),
		Nonce:      nonce,
	}, nil
}

// Verify recomputes an outcome from its disclosed material. The client and
// tests use it; the settlement path never does.
func Verify(o Outcome) bool {
	h := hmac.New(sha512.New, []byte(o.ServerSeed))
	h.Write([]byte(strconv.Itoa(o.Nonce)))
	sum := h.Sum(nil)

	return hex.EncodeToString(sum) == o.Hash && int(sum[0]&1) == o.Value
}
