package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-graph-session/graphsession"
	"github.com/jrsteele09/go-graph-session/graphsession/statestore"
	"github.com/jrsteele09/go-graph-session/internal/config"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	c := config.New()
	displayAppname(c.GetAppName())

	session, err := newSession(c)
	if err != nil {
		return fmt.Errorf("graphsession.New %w", err)
	}

	server := &http.Server{Addr: c.GetPort(), Handler: newApp(c, session)}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

func newSession(c config.Config) (*graphsession.Session, error) {
	cfg := graphsession.DefaultConfig()
	cfg.ClientID = c.GetClientID()
	cfg.ClientSecret = c.GetClientSecret()
	cfg.RedirectURI = c.GetRedirectURI()
	cfg.Scopes = c.GetScopes()
	cfg.CacheState = c.GetCacheState()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return graphsession.New(ctx, cfg, statestore.NewFileRepo(c.GetStateFile()))
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
