// Command rt-devserver runs a development update server.
//
// It speaks the client wire protocol on a websocket endpoint and exposes an
// admin API for injecting events, listing sessions and dropping
// connections. The server can advertise itself via mDNS so that rt-client
// --discover finds it.
//
// Usage:
//
//	rt-devserver [flags]
//
// Examples:
//
//	# Accept any non-empty token and advertise as "dev"
//	rt-devserver --listen :8080 --advertise --environment dev
//
//	# Only accept known users and slow down authentication
//	rt-devserver --credential u1:secret --auth-delay 2s
//
//	# Inject a balance change
//	curl -XPOST localhost:8080/admin/publish -d \
//	  '{"topic":"wallet:W1","event":"BALANCE_CHANGED","payload":{"walletId":"W1","available":"10.00","currency":"EUR"}}'
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/waqiti/realtime-go/internal/devserver"
	"github.com/waqiti/realtime-go/pkg/discovery"
)

func main() {
	app := &cli.App{
		Name:  "rt-devserver",
		Usage: "development realtime update server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Value: ":8080", Usage: "listen address"},
			&cli.StringFlag{Name: "path", Value: devserver.DefaultPath, Usage: "websocket path"},
			&cli.DurationFlag{Name: "auth-delay", Usage: "delay before acknowledging authentication"},
			&cli.StringSliceFlag{Name: "credential", Usage: "accepted user:token pair (default: any non-empty token)"},
			&cli.StringFlag{Name: "tls-cert", Usage: "TLS certificate file"},
			&cli.StringFlag{Name: "tls-key", Usage: "TLS key file"},
			&cli.BoolFlag{Name: "advertise", Usage: "advertise via mDNS"},
			&cli.StringFlag{Name: "instance", Usage: "mDNS instance name (default: hostname)"},
			&cli.StringFlag{Name: "environment", Value: "dev", Usage: "environment announced via mDNS"},
			&cli.StringFlag{Name: "interface", Usage: "network interface used for mDNS"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "development mode logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(development bool) (*slog.Logger, func(), error) {
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zl, err := config.Build()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(zapslog.NewHandler(zl.Core(), zapslog.WithName("rt-devserver")))
	return logger, func() { _ = zl.Sync() }, nil
}

// parseCredentials turns user:token pairs into an authenticator.
func parseCredentials(pairs []string) (devserver.Authenticator, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	known := make(map[string]string, len(pairs))
	for _, p := range pairs {
		user, token, ok := strings.Cut(p, ":")
		if !ok || user == "" || token == "" {
			return nil, fmt.Errorf("invalid credential %q, want user:token", p)
		}
		known[user] = token
	}
	return func(userID, token string) bool {
		want, ok := known[userID]
		return ok && want == token
	}, nil
}

func run(c *cli.Context) error {
	logger, syncLog, err := newLogger(c.Bool("development"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer syncLog()

	if !c.Bool("development") {
		gin.SetMode(gin.ReleaseMode)
	}

	auth, err := parseCredentials(c.StringSlice("credential"))
	if err != nil {
		return err
	}

	srv := devserver.New(devserver.Config{
		Path:         c.String("path"),
		AuthDelay:    c.Duration("auth-delay"),
		Authenticate: auth,
		Logger:       logger,
	})

	useTLS := c.String("tls-cert") != ""
	if useTLS != (c.String("tls-key") != "") {
		return errors.New("--tls-cert and --tls-key must be given together")
	}

	ln, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			err = httpSrv.ServeTLS(ln, c.String("tls-cert"), c.String("tls-key"))
		} else {
			err = httpSrv.Serve(ln)
		}
		errCh <- err
	}()
	logger.Info("server listening", "addr", ln.Addr().String(), "path", c.String("path"), "tls", useTLS)

	if c.Bool("advertise") {
		instance := c.String("instance")
		if instance == "" {
			host, _ := os.Hostname()
			instance = "rt-devserver-" + host
		}
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: c.String("interface")})
		info := discovery.ServerInfo{
			Instance:    instance,
			Port:        port,
			Path:        c.String("path"),
			TLS:         useTLS,
			Environment: c.String("environment"),
		}
		if err := adv.Advertise(info); err != nil {
			return fmt.Errorf("failed to advertise: %w", err)
		}
		defer adv.Stop()
		logger.Info("advertising via mDNS", "instance", instance, "port", strconv.Itoa(port), "environment", info.Environment)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	dropped := srv.DropAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	logger.Info("stopped", "sessions_dropped", dropped)
	return nil
}
