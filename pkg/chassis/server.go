// Package chassis runs the public surface of the service on one port.
//
// The same address is bound twice. TCP carries HTTP/1.1 and HTTP/2 under
// TLS, which keeps the REST API reachable with curl. UDP carries QUIC,
// demultiplexed by ALPN: "h3" connections go to an HTTP/3 server sharing
// the TCP handler, mcpquic.Protocol connections become MCP sessions.
// HTTP responses advertise the HTTP/3 endpoint with an Alt-Svc header.
//
// Without cert files the chassis generates a self-signed ECDSA P-256
// certificate, so a dev instance is a single binary with no setup.
package chassis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mezzala/gaffer/pkg/mcpquic"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// Config configures the chassis.
type Config struct {
	Addr      string            // listen address, bound on both TCP and UDP
	TLS       *tls.Config       // nil = derive from CertFile/KeyFile or self-sign
	CertFile  string            // production certificate path
	KeyFile   string            // production key path
	Handler   http.Handler      // the API mux, served on every HTTP version
	MCPServer *server.MCPServer // nil disables the MCP ALPN
	Logger    *slog.Logger
}

// Server owns the TCP and UDP listeners and their shutdown.
type Server struct {
	addr   string
	logger *slog.Logger
	tlsCfg *tls.Config

	httpHandler http.Handler
	mcpHandler  *mcpquic.Handler

	tcpServer *http.Server
	h3Server  *http3.Server
	quicLn    *quic.Listener
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tlsCfg := cfg.TLS
	if tlsCfg == nil {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			tlsCfg, err = ProductionTLSConfig(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("load TLS cert: %w", err)
			}
			cfg.Logger.Info("tls: production certificate loaded", "cert", cfg.CertFile)
		} else {
			tlsCfg, err = DevelopmentTLSConfig()
			if err != nil {
				return nil, fmt.Errorf("generate dev TLS: %w", err)
			}
			cfg.Logger.Info("tls: self-signed dev certificate generated")
		}
	}

	s := &Server{
		addr:        cfg.Addr,
		logger:      cfg.Logger,
		tlsCfg:      tlsCfg,
		httpHandler: cfg.Handler,
	}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

// Start binds both listeners and blocks until ctx is cancelled or a
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler := harden(advertiseH3(s.addr, s.httpHandler))

	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}
	s.tcpServer = &http.Server{
		Addr:      s.addr,
		Handler:   handler,
		TLSConfig: tcpTLS,
	}

	quicLn, err := quic.ListenAddr(s.addr, s.tlsCfg, mcpquic.QUICConfig())
	if err != nil {
		return fmt.Errorf("quic listen: %w", err)
	}
	s.quicLn = quicLn
	s.h3Server = &http3.Server{Handler: handler}

	s.logger.Info("chassis listening", "addr", s.addr)

	errCh := make(chan error, 2)
	go s.serveTCP(tcpTLS, errCh)
	go s.demuxQUIC(ctx, quicLn, errCh)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) serveTCP(tlsCfg *tls.Config, errCh chan<- error) {
	ln, err := tls.Listen("tcp", s.addr, tlsCfg)
	if err != nil {
		errCh <- fmt.Errorf("tcp listen: %w", err)
		return
	}
	if err := s.tcpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("tcp serve: %w", err)
	}
}

// demuxQUIC routes each accepted connection by its negotiated ALPN.
func (s *Server) demuxQUIC(ctx context.Context, ln *quic.Listener, errCh chan<- error) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				errCh <- fmt.Errorf("quic accept: %w", err)
			}
			return
		}

		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
		case "h3":
			go func() {
				if err := s.h3Server.ServeQUICConn(conn); err != nil {
					s.logger.Debug("h3 connection done", "remote", conn.RemoteAddr(), "error", err)
				}
			}()
		case mcpquic.Protocol:
			if s.mcpHandler == nil {
				conn.CloseWithError(quic.ApplicationErrorCode(0x10), "mcp not enabled")
				continue
			}
			go s.mcpHandler.ServeConn(ctx, conn)
		default:
			s.logger.Warn("unsupported ALPN", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(quic.ApplicationErrorCode(0x11), "unsupported ALPN: "+alpn)
		}
	}
}

// Stop shuts down every listener, draining in-flight HTTP requests until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("chassis stopping")

	var firstErr error
	if s.tcpServer != nil {
		if err := s.tcpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.quicLn != nil {
		if err := s.quicLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.h3Server != nil {
		if err := s.h3Server.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// harden sets the standard security headers on every response.
func harden(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// advertiseH3 adds the Alt-Svc header pointing HTTP/3-capable clients at
// the UDP side of the same port.
func advertiseH3(addr string, next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(addr)
	if port == "" {
		port = "443"
	}
	altSvc := fmt.Sprintf(`h3=":%s"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", altSvc)
		next.ServeHTTP(w, r)
	})
}
