package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// ErrNoKeyMaterial is a fatal configuration error: the process must not start
// without a custodial key.
var ErrNoKeyMaterial = errors.New("no wallet key material configured")

// Wallet holds a keypair and signs transfers with it. Used for the custodial
// house wallet on the service side and the player wallet in the CLI client.
type Wallet struct {
	priv solana.PrivateKey
}

type walletFile struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// LoadWallet resolves key material from a base58 private key (typically an
// environment variable) or, failing that, a JSON secret file written by the
// setup tooling. Both empty is a configuration error, not a runtime fault.
func LoadWallet(privateKey string, keyFile string) (*Wallet, error) {
	const op = "chain.LoadWallet"

	if privateKey == "" && keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrNoKeyMaterial)
		}

		var wf walletFile
		if err = json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		privateKey = wf.PrivateKey
	}

	if privateKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoKeyMaterial)
	}

	priv, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Wallet{priv: priv}, nil
}

// GenerateWallet creates a fresh keypair, for the one-time house wallet setup.
func GenerateWallet() *Wallet {
	return &Wallet{priv: solana.NewWallet().PrivateKey}
}

// Save writes the keypair to a JSON secret file readable by LoadWallet.
// The file holds the private key, so permissions stay owner-only.
func (w *Wallet) Save(path string) error {
	const op = "chain.Wallet.Save"

	data, err := json.MarshalIndent(walletFile{
		PublicKey:  w.Address().String(),
		PrivateKey: w.priv.String(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (w *Wallet) Address() solana.PublicKey {
	return w.priv.PublicKey()
}

// BuildTransfer assembles and signs a system transfer from this wallet.
// The blockhash must be freshly fetched; the network rejects stale anchors.
func (w *Wallet) BuildTransfer(to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	const op = "chain.Wallet.BuildTransfer"

	ix := system.NewTransferInstruction(lamports, w.Address(), to).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(w.Address()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.Address()) {
			return &w.priv
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}
