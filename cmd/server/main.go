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
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/surveyforge/console-auth/backend"
	"github.com/surveyforge/console-auth/idp"
	"github.com/surveyforge/console-auth/internal/config"
	"github.com/surveyforge/console-auth/orchestrator"
	"github.com/surveyforge/console-auth/server"
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

	c := config.New()
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	displayAppname(c.GetAppName())

	srv, err := buildServer(c)
	if err != nil {
		return err
	}

	mux := srv.Routes()
	// Example protected endpoint; the real console mounts its routes here.
	mux.HandleFunc("/whoami", srv.RequireSession()(whoamiHandler))

	httpServer := &http.Server{Addr: c.GetPort(), Handler: mux}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	httpClient := &http.Client{Timeout: c.GetRequestTimeout()}

	idpClient, err := idp.NewClient(context.Background(), idp.Config{
		Issuer:       c.GetIssuer(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURL(),
		Scopes:       c.GetScopes(),
	}, idp.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("idp.NewClient: %w", err)
	}

	gateway := backend.NewGateway(c.GetBackendBaseURL(), backend.WithHTTPClient(httpClient))

	orch, err := orchestrator.New(gateway, idpClient, c.GetInstanceID())
	if err != nil {
		return nil, fmt.Errorf("orchestrator.New: %w", err)
	}

	return server.New(c, orch, idpClient)
}

func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	token, _ := server.FromContext(r.Context())
	w.Header().Set("Content-Type", "text/plain")
	if token.Identity != nil {
		fmt.Fprintf(w, "%s <%s> admin=%v\n", token.Identity.Name, token.Identity.Email, token.IsAdmin)
		return
	}
	fmt.Fprintf(w, "session %s admin=%v\n", token.BackendSessionID, token.IsAdmin)
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
