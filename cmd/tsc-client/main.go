package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/tsc-client/internal/adapter/console"
	"github.com/park285/tsc-client/internal/apiclient"
	appcfg "github.com/park285/tsc-client/internal/config"
	"github.com/park285/tsc-client/internal/controller"
	"github.com/park285/tsc-client/internal/msgcat"
	"github.com/park285/tsc-client/internal/obslog"
	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("credential store error: %v", err)
	}
	defer closeStore()

	api := apiclient.NewClient(cfg.BaseURL,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithRetry(cfg.HTTPRetryMax),
	)
	ch := realtime.NewChannel(cfg.WSURL,
		realtime.WithLogger(logger.Named("realtime")),
		realtime.WithPingInterval(cfg.WSPingInterval),
	)
	presenter := console.NewPresenter(os.Stdout, cfg.ExportDir, logger)

	ctrl, err := controller.New(controller.Options{
		API:             api,
		Channel:         ch,
		Store:           store,
		Display:         presenter,
		Catalog:         cat,
		Logger:          logger.Named("controller"),
		StrictSnapshots: cfg.StrictSnapshots,
	})
	if err != nil {
		log.Fatalf("controller init error: %v", err)
	}
	logger.Info("client_start", zap.String("session", ctrl.ID()), zap.String("base_url", cfg.BaseURL))

	bctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := ctrl.Boot(bctx); err != nil {
		fmt.Println("Stored session could not be resumed; please log in.")
	}
	cancel()

	fmt.Println(helpText())
	app := &app{ctrl: ctrl, cfg: cfg, out: os.Stdout}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := app.run(context.Background(), line); quit {
				break loop
			}
		}
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = ch.Close(cctx)
	ccancel()
	ctrl.Close()
}

func openStore(cfg *appcfg.AppConfig) (session.CredentialStore, func(), error) {
	switch cfg.CredentialStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		return session.NewRedisStore(rdb, cfg.CredentialProfile), func() { _ = rdb.Close() }, nil
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return session.NewFileStore(cfg.CredentialFile), func() {}, nil
	}
}
