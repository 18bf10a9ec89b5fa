package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"coinflip/internal/chain"
	"coinflip/internal/config"
	"coinflip/internal/http-server/handlers/event"
	"coinflip/internal/http-server/handlers/fairness"
	"coinflip/internal/http-server/handlers/flip"
	"coinflip/internal/http-server/handlers/house"
	"coinflip/internal/http-server/handlers/job"
	"coinflip/internal/http-server/handlers/stats"
	mwlogger "coinflip/internal/http-server/middleware/logger"
	"coinflip/internal/lib/logger/handler/slogpretty"
	"coinflip/internal/lib/logger/sl"
	"coinflip/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pusher/pusher-http-go/v5"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting settlement server...", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	wallet, err := chain.LoadWallet(cfg.HouseWallet.PrivateKey, cfg.HouseWallet.KeyFile)
	if err != nil {
		log.Error("No house wallet found. Run the setup tool first.", sl.Err(err))
		os.Exit(1)
	}

	log.Info("House wallet loaded", slog.String("address", wallet.Address().String()))

	ledger := chain.New(cfg.Solana.RPCEndpoint, cfg.Solana.ConfirmPoll, log)

	houseLedger := repository.NewHouseLedger()
	settled := repository.NewSettlementCache(cfg.Game.DedupTTL)

	publisher := setupPublisher(cfg, log)

	jobs := job.NewDispatcher(2, 64)
	jobs.Start()
	defer jobs.Stop()

	settler := flip.NewSettler(
		log, ledger, wallet, houseLedger,
		fairness.NewProvable(), settled, repository.NewBetRegistry(),
		cfg.Game, cfg.Solana.ConfirmTimeout)

	flipHandler := flip.NewHandler(log, settler, publisher, jobs)
	houseHandler := house.NewHandler(log, ledger, wallet, houseLedger, publisher, jobs, cfg.Solana.ConfirmTimeout)
	statsHandler := stats.NewHandler(log, houseLedger, wallet.Address())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/api/house-wallet", houseHandler.Info())
	router.Post("/api/process-game", flipHandler.New())
	router.Get("/api/stats", statsHandler.Stats())
	router.Post("/api/fund-house", houseHandler.Fund())
	router.Get("/api/health", statsHandler.Health())

	log.Info("Server started", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("Server failed", sl.Err(err))
	}

	log.Error("Server stopped")
}

// setupPublisher wires the event sinks: the ws relay when reachable, Pusher
// when credentials are configured. The service runs fine without either.
func setupPublisher(cfg *config.Config, log *slog.Logger) event.Publisher {
	var publishers []event.Publisher

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSServer.URL, nil)
	if err != nil {
		log.Warn("ws relay unreachable, settlement events disabled", sl.Err(err))
	} else {
		publishers = append(publishers, event.NewWSEvent(log, conn))
	}

	if cfg.Pusher.AppID != "" {
		pusherClient := &pusher.Client{
			AppID:   cfg.Pusher.AppID,
			Key:     cfg.Pusher.Key,
			Secret:  cfg.Pusher.Secret,
			Cluster: cfg.Pusher.Cluster,
			Secure:  true,
		}

		publishers = append(publishers, event.NewPusherEvent(log, pusherClient))
	}

	if len(publishers) == 0 {
		return nil
	}

	return event.NewFanout(publishers...)
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlogLogger()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlogLogger() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
