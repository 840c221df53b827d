// Command spooky-vocab starts the Spooky Vocab game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, deck directory, debug logging, version output,
// and optional ngrok tunneling for easy external access during development.
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/spooky-vocab/api"
	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/service"
	"github.com/wricardo/spooky-vocab/game/session"
	"github.com/wricardo/spooky-vocab/transport/mcp"
	"github.com/wricardo/spooky-vocab/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Spooky Vocab Game Server"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

var errNoNgrokToken = errors.New("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")

// serverConfig is the resolved command line and environment configuration
type serverConfig struct {
	host           string
	port           int
	deckDir        string
	defaultDeck    string
	sessionTTL     time.Duration
	allowedOrigins []string
	debug          bool
	ngrokEnabled   bool
	ngrokAuth      string
	ngrokDomain    string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// app holds the wired services shared by both modes
type app struct {
	config   serverConfig
	logger   *zap.Logger
	hub      *websocket.Hub
	decks    *deck.Manager
	sessions *session.Manager
	service  service.GameService
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.StringFlag{
			Name:    "deck-dir",
			Usage:   "Directory with additional deck files (built-in decks are always available)",
			Sources: cli.EnvVars("DECK_DIR"),
		},
		&cli.StringFlag{
			Name:    "default-deck",
			Usage:   "Deck used when a session is created without one",
			Sources: cli.EnvVars("DEFAULT_DECK"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   24 * time.Hour,
			Usage:   "Remove sessions not accessed for this long",
			Sources: cli.EnvVars("SESSION_TTL"),
		},
		&cli.StringSliceFlag{
			Name:    "allowed-origins",
			Usage:   "CORS origins allowed to call the API (default any)",
			Sources: cli.EnvVars("CORS_ORIGINS"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("DEBUG"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func configFromCommand(cmd *cli.Command) serverConfig {
	return serverConfig{
		host:           cmd.String("host"),
		port:           int(cmd.Int("port")),
		deckDir:        cmd.String("deck-dir"),
		defaultDeck:    cmd.String("default-deck"),
		sessionTTL:     cmd.Duration("session-ttl"),
		allowedOrigins: cmd.StringSlice("allowed-origins"),
		debug:          cmd.Bool("debug"),
		ngrokEnabled:   cmd.Bool("ngrok"),
		ngrokAuth:      cmd.String("ngrok-auth"),
		ngrokDomain:    cmd.String("ngrok-domain"),
	}
}

// newCommand builds the root command. envErr is the result of loading .env.
func newCommand(envErr error) *cli.Command {
	serve := func(mode string, run func(context.Context, *app) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromCommand(cmd)

			logger, err := newLogger(cfg.debug)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			if envErr == nil {
				logger.Info("loaded environment variables from .env file")
			} else if !os.IsNotExist(envErr) {
				logger.Warn("error loading .env file", zap.Error(envErr))
			}

			logger.Info("starting",
				zap.String("app", AppName),
				zap.String("version", Version),
				zap.String("mode", mode))

			a, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			defer a.close()

			return run(ctx, a)
		}
	}

	return &cli.Command{
		Name:    "spooky-vocab",
		Usage:   AppName,
		Version: Version,
		Flags:   flags(),
		Action:  serve("server", runHTTPServer),
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serve("server", runHTTPServer),
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  serve("stdio-mcp", runStdioMCPWithInternalServer),
			},
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// main loads .env, parses flags and starts the selected mode.
func main() {
	// Missing .env is fine; other errors are logged once the logger exists
	envErr := godotenv.Load()

	if err := newCommand(envErr).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp wires the deck manager, websocket hub, session manager and game service.
// The hub loop is started here and stopped by close.
func newApp(cfg serverConfig, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	decks, err := deck.NewManager(cfg.deckDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck manager: %w", err)
	}
	if cfg.defaultDeck != "" {
		if err := decks.SetDefault(cfg.defaultDeck); err != nil {
			return nil, fmt.Errorf("failed to set default deck: %w", err)
		}
	}

	hub := websocket.NewHub(websocket.WithLogger(logger.Named("ws")))
	go hub.Run()

	announcer := service.NewAnnouncer(hub, logger)
	sessions := session.NewManager(
		session.WithMemoryOptions(announcer.MemoryOptions),
		session.WithTabooOptions(announcer.TabooOptions),
		session.WithLogger(logger),
	)

	gameService := service.NewGameService(sessions, decks,
		service.WithAnnouncer(announcer),
		service.WithLogger(logger),
	)

	return &app{
		config:   cfg,
		logger:   logger,
		hub:      hub,
		decks:    decks,
		sessions: sessions,
		service:  gameService,
	}, nil
}

// close stops every session timer and the hub loop
func (a *app) close() {
	a.sessions.Close()
	a.hub.Stop()
}

// apiHandler returns the REST API and WebSocket handler
func (a *app) apiHandler() http.Handler {
	opts := []api.Option{api.WithLogger(a.logger.Named("api"))}
	if len(a.config.allowedOrigins) > 0 {
		opts = append(opts, api.WithAllowedOrigins(a.config.allowedOrigins...))
	}
	return api.NewServer(a.service, a.hub, opts...)
}

// handler combines the API with an /mcp endpoint proxying to baseURL
func (a *app) handler(baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.apiHandler())
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// mcpHandler answers JSON-RPC messages posted over HTTP
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runCleanup periodically removes sessions not accessed within the TTL until ctx is done
func (a *app) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.sessions.CleanupExpiredSessions(a.config.sessionTTL); removed > 0 {
				a.logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// reloadDecks drops cached deck files and re-applies the configured default deck
func (a *app) reloadDecks() error {
	if err := a.decks.RefreshCache(); err != nil {
		return err
	}
	if a.config.defaultDeck != "" {
		return a.decks.SetDefault(a.config.defaultDeck)
	}
	return nil
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. SIGHUP reloads deck files.
func runHTTPServer(ctx context.Context, a *app) error {
	addr := a.config.addr()
	mainRouter := a.handler(fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		a.logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runCleanup(ctx, cleanupInterval)
	}()

	if a.config.ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runNgrok(ctx, a.config, mainRouter, a.logger); err != nil {
				a.logger.Warn("ngrok tunnel unavailable", zap.Error(err))
			}
		}()
	}

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			break loop
		case err = <-serveErr:
			a.logger.Error("HTTP server failed", zap.Error(err))
			cancel()
			break loop
		case <-reload:
			if rerr := a.reloadDecks(); rerr != nil {
				a.logger.Warn("deck reload failed", zap.Error(rerr))
			} else {
				a.logger.Info("decks reloaded")
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(serr))
	}

	wg.Wait()
	a.logger.Info("server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg serverConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg.ngrokAuth == "" {
		return errNoNgrokToken
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.ngrokDomain))
		logger.Info("using custom ngrok domain", zap.String("domain", cfg.ngrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.ngrokAuth))
	if err != nil {
		return fmt.Errorf("failed to start ngrok tunnel: %w", err)
	}

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("websocket", ngrokURL+"/ws?session=<session_id>"),
		zap.String("mcp", ngrokURL+"/mcp"))

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	if err := tunnelServer.Serve(tun); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ngrok server error: %w", err)
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// externalAPIAvailable reports whether a server already answers the health check at baseURL
func externalAPIAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the API on a random loopback port and returns its base URL
func (a *app) startInternalServer() (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	internalAddr := listener.Addr().String()
	httpServer := &http.Server{Handler: a.apiHandler()}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()

	return fmt.Sprintf("http://%s", internalAddr), httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API already running at the configured address; otherwise it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, a *app) error {
	baseURL := fmt.Sprintf("http://%s", a.config.addr())
	a.logger.Info("checking for external API server", zap.String("url", baseURL))

	if externalAPIAvailable(baseURL) {
		a.logger.Info("MCP stdio server ready (using external HTTP server)", zap.String("url", baseURL))
	} else {
		internalURL, httpServer, err := a.startInternalServer()
		if err != nil {
			return err
		}
		defer httpServer.Close()

		baseURL = internalURL
		a.logger.Info("MCP stdio server ready (using internal HTTP server)", zap.String("url", baseURL))

		cleanupCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.runCleanup(cleanupCtx, cleanupInterval)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
