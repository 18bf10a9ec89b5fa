package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string      `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer  HTTPServer  `yaml:"http_server"`
	WSServer    WSServer    `yaml:"ws_server"`
	Solana      Solana      `yaml:"solana"`
	Game        GameConfig  `yaml:"game"`
	Pusher      Pusher      `yaml:"pusher"`
	HouseWallet HouseWallet `yaml:"house_wallet"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:3001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type WSServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8081"`
	URL         string        `yaml:"url" env-default:"ws://localhost:8081/ws?room=flips"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Solana struct {
	RPCEndpoint    string        `yaml:"rpc_endpoint" env:"SOLANA_RPC_ENDPOINT" env-default:"https://api.devnet.solana.com"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" env-default:"45s"`
	ConfirmPoll    time.Duration `yaml:"confirm_poll" env-default:"2s"`
}

type GameConfig struct {
	MinBet           float64       `yaml:"min_bet" env-default:"0.1"`
	MaxBet           float64       `yaml:"max_bet" env-default:"1"`
	PayoutMultiplier uint64        `yaml:"payout_multiplier" env-default:"2"`
	VerifyBet        bool          `yaml:"verify_bet" env-default:"true"`
	DedupTTL         time.Duration `yaml:"dedup_ttl" env-default:"5m"`
}

type Pusher struct {
	AppID   string `yaml:"app_id" env:"PUSHER_APP_ID"`
	Key     string `yaml:"key" env:"PUSHER_KEY"`
	Secret  string `yaml:"secret" env:"PUSHER_SECRET"`
	Cluster string `yaml:"cluster" env-default:"eu"`
}

// HouseWallet points at the custodial key material. PrivateKey wins over
// KeyFile when both are set; startup fails when neither yields a key.
type HouseWallet struct {
	PrivateKey string `yaml:"-" env:"HOUSE_WALLET_PRIVATE_KEY"`
	KeyFile    string `yaml:"key_file" env:"HOUSE_WALLET_KEY_FILE" env-default:".house-wallet.json"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
