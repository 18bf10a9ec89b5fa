package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"coinflip/internal/chain"
	"coinflip/internal/client"
	"coinflip/internal/config"
	"coinflip/internal/lib/logger/handler/slogpretty"

	"github.com/pterm/pterm"
	"golang.org/x/exp/slog"
)

func main() {
	var (
		amount   = flag.Float64("amount", 0.1, "bet amount in SOL")
		choice   = flag.String("choice", "heads", "heads or tails")
		server   = flag.String("server", "http://localhost:3001", "settlement server URL")
		endpoint = flag.String("rpc", "https://api.devnet.solana.com", "Solana RPC endpoint")
		keyFile  = flag.String("wallet", ".player-wallet.json", "player wallet key file")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	log := setupLogger(*verbose)

	side, err := parseChoice(*choice)
	if err != nil {
		pterm.Error.Printfln("%s", err)
		os.Exit(1)
	}

	wallet, err := chain.LoadWallet(os.Getenv("PLAYER_WALLET_PRIVATE_KEY"), *keyFile)
	if err != nil {
		pterm.Error.Printfln("no player wallet: set PLAYER_WALLET_PRIVATE_KEY or provide %s", *keyFile)
		os.Exit(1)
	}

	pterm.Info.Printfln("Wallet: %s", wallet.Address().String())

	ledger := chain.New(*endpoint, 2*time.Second, log)
	api := client.NewAPI(*server, nil)

	session := client.NewSession(log, ledger, wallet, api, config.GameConfig{
		MinBet: 0.1,
		MaxBet: 1,
	}, 45*time.Second)

	spinner, _ := pterm.DefaultSpinner.Start(
		fmt.Sprintf("Flipping %s for %g SOL...", *choice, *amount))

	result, err := session.Flip(context.Background(), *amount, side)
	if err != nil {
		spinner.Fail(client.Describe(err))
		os.Exit(1)
	}

	spinner.Stop()

	pterm.Info.Printfln("Result: %s (your call: %s)", sideName(result.Result), *choice)

	switch {
	case result.Won && result.Paid:
		pterm.Success.Printfln("You WON! Payout %g SOL sent: %s", result.Payout, result.PayoutSig)
	case result.Won:
		pterm.Warning.Printfln("You won, but the payout could not be sent: %s", result.Message)
	default:
		pterm.Error.Printfln("You lost %g SOL. %s", *amount, result.Message)
	}
}

func parseChoice(s string) (int, error) {
	switch s {
	case "heads":
		return config.Heads, nil
	case "tails":
		return config.Tails, nil
	default:
		return 0, fmt.Errorf("choice must be heads or tails, got %q", s)
	}
}

func sideName(v int) string {
	if v == config.Heads {
		return "heads"
	}

	return "tails"
}

func setupLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stderr))
}
