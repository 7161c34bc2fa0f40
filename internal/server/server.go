// Package server is the Taskdeck HTTP + WebSocket API server.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/taskdeck/internal/agent"
	"github.com/soyeahso/taskdeck/internal/config"
	"github.com/soyeahso/taskdeck/internal/logging"
	"github.com/soyeahso/taskdeck/internal/store"
	"github.com/soyeahso/taskdeck/internal/tools"
	"github.com/soyeahso/taskdeck/internal/version"
)

// chatCallTimeout caps one chat turn, provider calls included.
const chatCallTimeout = 5 * time.Minute

// Server is the Taskdeck API server.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	tokens   *TokenIssuer
	users    *store.UserStore
	tasks    *store.TaskStore
	convs    *store.ConversationStore
	registry *tools.Registry
	agent    *agent.Agent

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	chatLimiter *chatRateLimiter
}

// New creates the API server.
func New(
	cfg config.Config,
	db *store.DB,
	registry *tools.Registry,
	chatAgent *agent.Agent,
	log *logging.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		log:         log.Sub("server"),
		tokens:      NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour),
		users:       store.NewUserStore(db),
		tasks:       store.NewTaskStore(db),
		convs:       store.NewConversationStore(db),
		registry:    registry,
		agent:       chatAgent,
		chatLimiter: newChatRateLimiter(cfg.Chat.RateLimitPerMinute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Server.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. Non-browser clients (no Origin) are always allowed; browsers must
// match a configured origin.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Close releases background resources. Safe to call whether or not Start ran.
func (s *Server) Close() {
	s.chatLimiter.close()
}

// Start begins listening. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 6 * time.Minute, // must outlive a full chat turn
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Server.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.Server.TLS.CertPath, s.cfg.Server.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Server.Bind != "loopback" {
		s.log.Warn().Msg("TLS is not enabled, credentials will be transmitted in cleartext")
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Str("version", version.Version).
		Msg("api server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
