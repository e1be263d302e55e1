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
	"github.com/jrsteele09/go-job-board/backend"
	"github.com/jrsteele09/go-job-board/identity"
	"github.com/jrsteele09/go-job-board/internal/config"
	"github.com/jrsteele09/go-job-board/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	configFile := pflag.StringP("config", "c", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	pflag.Parse()

	if err := run(*configFile); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(configFile string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	deps := server.Deps{Backend: backend.New(c.GetBackendBaseURL(), c.GetBackendTimeout())}
	if c.IsGoogleEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err := identity.NewGoogleProvider(ctx, c.GetGoogleIssuer(), c.GetGoogleClientID(), c.GetGoogleClientSecret(), c.GetGoogleRedirectURL())
		cancel()
		if err != nil {
			return fmt.Errorf("identity.NewGoogleProvider: %w", err)
		}
		deps.Google = google
		deps.Refresher = google
	} else {
		log.Warn().Msg("Google sign-in disabled: GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set")
	}

	handler, err := server.New(c, deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(httpServer) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if c.IsVerbose() {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
