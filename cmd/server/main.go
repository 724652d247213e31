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
	"github.com/fatih/color"
	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/jrsteele09/go-session-gateway/internal/logging"
	"github.com/jrsteele09/go-session-gateway/server"
	refreshrepofake "github.com/jrsteele09/go-session-gateway/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-session-gateway/users/repofake"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Install(logging.New(c.GetLogLevel(), c.GetLogPretty(), os.Stderr))
	displayAppname(c.GetAppName() + " dev")

	backend, err := server.New(c, server.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	})
	if err != nil {
		return err
	}
	if pw := backend.SeededPassword(); pw != "" {
		printSeededOwner(c, pw)
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		return err
	case <-stop:
	}
	return shutdown(srv)
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func printSeededOwner(c config.Config, password string) {
	bold := color.New(color.Bold)
	bold.Println("Owner account")
	fmt.Printf("   Email:     %s\n", c.GetSeedAdminEmail())
	fmt.Printf("   Password:  %s\n", color.YellowString(password))
	fmt.Printf("   API:       %s%s\n", c.GetBaseURL(), server.RouteAPIPrefix)
	fmt.Printf("   Discovery: %s%s\n\n", c.GetBaseURL(), server.RouteWellKnownOpenIDConfig)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
