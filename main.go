package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"blogpress/cache"
	"blogpress/common"
	"blogpress/config"
	"blogpress/content"
	"blogpress/database"
	"blogpress/email"
	"blogpress/jobs"
	"blogpress/logger"
	"blogpress/notify"
	"blogpress/server"
)

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "filldb":
		err = filldb(cfg)
	default:
		slog.Error("unknown command, expected serve or filldb", "command", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("blogpress exited with error", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := common.ConnectDb(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

func filldb(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	seed := uint64(time.Now().UnixNano())
	return database.Seed(context.Background(), db, rand.New(rand.NewPCG(seed, seed>>1)))
}

func serve(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := notify.NewDispatcher(email.NewSender(cfg.Mail), notify.Options{
		AdminAddress: cfg.Mail.AdminAddress,
		From:         cfg.Mail.From,
		BaseURL:      cfg.Server.BaseURL,
		Timeout:      cfg.Mail.Timeout,
	})
	defer dispatcher.Wait()

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	cronMgr := jobs.NewManager()
	if store != nil {
		if err := cronMgr.Register(cfg.Cache.JanitorSchedule, jobs.NewCacheSweepJob(store)); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := server.NewRouter(cfg.Server, server.Deps{
		DB:         db,
		Service:    content.NewService(db, dispatcher),
		Dispatcher: dispatcher,
		Cache:      store,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	cronMgr.Start()
	g.Go(func() error {
		<-ctx.Done()
		cronMgr.Stop()
		return nil
	})

	g.Go(func() error {
		slog.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown failed", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("blogpress stopped")
	return nil
}
