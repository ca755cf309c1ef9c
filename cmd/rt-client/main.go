// Command rt-client is a reference client of the realtime update service.
//
// It keeps a websocket connection to the update server, subscribes to
// transactions, wallets and check deposits, and caches the latest state
// on disk.
//
// Usage:
//
//	rt-client [flags]
//
// Examples:
//
//	# Connect with a config file and open the console
//	rt-client --config rt-client.yaml --interactive
//
//	# Subscribe to a wallet and log events as JSON
//	rt-client --url wss://updates.example.com/ws --user-id u1 --token $TOKEN --wallet W1
//
//	# Find the development server via mDNS and capture the protocol
//	rt-client --discover --environment dev --protocol-log client.rtlog --interactive
//
// Interactive Commands:
//
//	connect, disconnect, info
//	sub <class> <id>, unsub <class> <id>, subs
//	balance <wallet-id>, txn <id>, deposit <id>
//	history, notifications, alerts
//	quit
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/waqiti/realtime-go/cmd/rt-client/interactive"
	"github.com/waqiti/realtime-go/internal/config"
	"github.com/waqiti/realtime-go/pkg/cache"
	"github.com/waqiti/realtime-go/pkg/discovery"
	rtlog "github.com/waqiti/realtime-go/pkg/log"
	"github.com/waqiti/realtime-go/pkg/metrics"
	"github.com/waqiti/realtime-go/pkg/netmon"
	"github.com/waqiti/realtime-go/pkg/persistence"
	"github.com/waqiti/realtime-go/pkg/service"
)

// discoverTimeout bounds the mDNS lookup at startup.
const discoverTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "rt-client",
		Usage: "realtime update client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file path"},
			&cli.StringSliceFlag{Name: "env-file", Usage: "dotenv files loaded before the config (default: .env)"},
			&cli.StringFlag{Name: "url", Usage: "websocket URL of the update server", EnvVars: []string{"RT_URL"}},
			&cli.BoolFlag{Name: "discover", Usage: "find the server via mDNS"},
			&cli.StringFlag{Name: "environment", Usage: "server environment to discover"},
			&cli.StringFlag{Name: "user-id", Aliases: []string{"u"}, Usage: "user id", EnvVars: []string{"RT_USER_ID"}},
			&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "auth token", EnvVars: []string{"RT_TOKEN"}},
			&cli.StringFlag{Name: "cache-path", Usage: "LevelDB cache directory (default: in memory)"},
			&cli.StringFlag{Name: "metrics-listen", Usage: "address of the /metrics endpoint"},
			&cli.StringFlag{Name: "protocol-log", Usage: "write a protocol capture to this file"},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "human-readable log output"},
			&cli.StringSliceFlag{Name: "wallet", Usage: "subscribe to a wallet"},
			&cli.StringSliceFlag{Name: "transaction", Usage: "subscribe to a transaction"},
			&cli.StringSliceFlag{Name: "check-deposit", Usage: "subscribe to a check deposit"},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "enable interactive command mode"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadWithDefaults(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("url") {
		cfg.Server.URL = c.String("url")
	}
	if c.IsSet("discover") {
		cfg.Server.Discover = c.Bool("discover")
	}
	if c.IsSet("environment") {
		cfg.Server.Environment = c.String("environment")
	}
	if c.IsSet("user-id") {
		cfg.Auth.UserID = c.String("user-id")
	}
	if c.IsSet("token") {
		cfg.Auth.Token = c.String("token")
	}
	if c.IsSet("cache-path") {
		cfg.Cache.Path = c.String("cache-path")
	}
	if c.IsSet("metrics-listen") {
		cfg.Metrics.Listen = c.String("metrics-listen")
	}
	if c.IsSet("protocol-log") {
		cfg.Logging.ProtocolLog = c.String("protocol-log")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("development") {
		cfg.Logging.Development = c.Bool("development")
	}
	cfg.Subscriptions.Wallets = append(cfg.Subscriptions.Wallets, c.StringSlice("wallet")...)
	cfg.Subscriptions.Transactions = append(cfg.Subscriptions.Transactions, c.StringSlice("transaction")...)
	cfg.Subscriptions.CheckDeposits = append(cfg.Subscriptions.CheckDeposits, c.StringSlice("check-deposit")...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOut := &redirectWriter{w: os.Stderr}
	logger, syncLog := newLogger(cfg.SlogLevel(), cfg.Logging.Development, logOut)
	defer syncLog()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	serverURL := cfg.Server.URL
	if serverURL == "" {
		if serverURL, err = discoverServer(ctx, cfg, logger); err != nil {
			return err
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svcConfig := cfg.ServiceConfig(logger)
	svcConfig.URL = serverURL
	svcConfig.Cache = cache.New(store, logger)

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		svcConfig.Metrics = m
		stop := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer stop()
	}

	if cfg.Logging.ProtocolLog != "" {
		fl, err := rtlog.NewFileLogger(cfg.Logging.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer fl.Close()
		svcConfig.ProtocolLogger = rtlog.NewMultiLogger(fl, rtlog.NewSlogAdapter(logger.With("component", "protocol")))
		logger.Info("protocol capture enabled", "path", cfg.Logging.ProtocolLog)
	}

	if !cfg.Network.Disabled {
		if addr := cfg.ProbeAddress(serverURL); addr != "" {
			netCfg := cfg.Network.Config
			netCfg.Logger = logger
			monitor := netmon.NewMonitor(&netmon.DialProbe{Address: addr}, netCfg)
			monitor.Start(ctx)
			defer monitor.Stop()
			svcConfig.NetworkMonitor = monitor
		}
	}

	svc, err := service.New(svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Disconnect()

	for _, id := range cfg.Subscriptions.Wallets {
		svc.SubscribeToWallet(id)
	}
	for _, id := range cfg.Subscriptions.Transactions {
		svc.SubscribeToTransaction(id)
	}
	for _, id := range cfg.Subscriptions.CheckDeposits {
		svc.SubscribeToCheckDeposit(id)
	}

	creds := interactive.Credentials{UserID: cfg.Auth.UserID, Token: cfg.Auth.Token}

	if c.Bool("interactive") {
		console, err := interactive.New(svc, creds)
		if err != nil {
			return err
		}
		logOut.Set(console.Stdout())
		if creds.UserID != "" && creds.Token != "" {
			connect(ctx, svc, creds, logger)
		}
		go waitForSignal(ctx, cancel)
		console.Run(ctx, cancel)
		return nil
	}

	if creds.UserID == "" || creds.Token == "" {
		return errors.New("credentials required: set auth.user_id and auth.token or use --interactive")
	}
	svc.OnAll(logEvent(logger))
	if err := svc.Initialize(ctx, creds.UserID, creds.Token); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	logger.Info("connected", "url", serverURL, "subscriptions", len(svc.Subscriptions()))

	waitForSignal(ctx, cancel)
	logger.Info("shutting down")
	return nil
}

func connect(ctx context.Context, svc *service.RealtimeService, creds interactive.Credentials, logger *slog.Logger) {
	if err := svc.Initialize(ctx, creds.UserID, creds.Token); err != nil {
		logger.Warn("initial connect failed", "error", err)
	}
}

func discoverServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	resolver := discovery.NewResolver(discovery.ResolverConfig{
		Interface: cfg.Server.Interface,
		Logger:    logger,
	})
	resolveCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	logger.Info("discovering server", "environment", cfg.Server.Environment)
	ep, err := resolver.Resolve(resolveCtx, cfg.Server.Environment)
	if err != nil {
		return "", fmt.Errorf("failed to discover server: %w", err)
	}
	url := ep.URL()
	logger.Info("discovered server", "instance", ep.Instance, "url", url)
	return url, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (persistence.Store, error) {
	if cfg.Cache.Path == "" {
		return persistence.NewMemoryStore(), nil
	}

	db, err := persistence.OpenLevelDB(persistence.LevelDBConfig{
		Path:   cfg.Cache.Path,
		Sync:   cfg.Cache.Sync,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if cfg.Cache.SealSecret == "" {
		return db, nil
	}

	sealed, err := persistence.NewSealedStore(db, []byte(cfg.Cache.SealSecret), []byte(cfg.Auth.UserID))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seal cache: %w", err)
	}
	return sealed, nil
}

func serveMetrics(addr string, g prometheus.Gatherer, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func waitForSignal(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		cancel()
	case <-ctx.Done():
	}
}
