package main

import (
	"flag"
	"os"

	"coinflip/internal/chain"

	"github.com/pterm/pterm"
)

func main() {
	out := flag.String("out", ".house-wallet.json", "where to write the wallet secret file")
	force := flag.Bool("force", false, "overwrite an existing wallet file")
	flag.Parse()

	if _, err := os.Stat(*out); err == nil && !*force {
		pterm.Error.Printfln("%s already exists, pass -force to overwrite it", *out)
		os.Exit(1)
	}

	wallet := chain.GenerateWallet()

	if err := wallet.Save(*out); err != nil {
		pterm.Error.Printfln("could not write wallet file: %v", err)
		os.Exit(1)
	}

	pterm.Success.Printfln("house wallet written to %s", *out)
	pterm.Info.Printfln("address: %s", wallet.Address())
	pterm.Info.Println("fund it on devnet before starting the server:")
	pterm.Info.Printfln("  solana airdrop 2 %s --url devnet", wallet.Address())
}
