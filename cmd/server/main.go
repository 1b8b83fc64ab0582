package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crag-project/crag-server/githuboauth"
	"github.com/crag-project/crag-server/internal/config"
	"github.com/crag-project/crag-server/server"
	"github.com/crag-project/crag-server/sessions"
)

const sweepInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	setupLogging(cfg.GetEnv())
	displayAppname(cfg.GetAppName())

	store := sessions.NewStore(cfg.GetSessionLifetime())

	oauthService, err := githuboauth.NewService(cfg, store)
	if err != nil {
		return fmt.Errorf("building oauth service: %w", err)
	}

	srv, err := server.New(cfg, store, oauthService)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go store.RunSweeper(sweepCtx, sweepInterval)

	httpServer := &http.Server{Addr: cfg.GetListenAddr(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	stopSweeper()
	return shutdown(httpServer)
}

func setupLogging(env string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if env == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
