package mcpquic

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mezzala/gaffer/pkg/kit"
	"github.com/quic-go/quic-go"
)

// Handler serves MCP sessions on QUIC connections handed over by an ALPN
// demuxer. It does not listen by itself; the chassis owns the socket.
type Handler struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

func NewHandler(srv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{srv: srv, logger: logger}
}

// ServeConn runs one MCP session over the connection's first stream and
// returns when the peer disconnects or ctx is cancelled.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	log := h.logger.With("remote", conn.RemoteAddr().String())

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		log.Error("mcp: no stream", "error", err)
		conn.CloseWithError(connErrProtocol, "no stream")
		return
	}

	if err := readPreamble(stream); err != nil {
		log.Error("mcp: bad preamble", "error", err)
		stream.CancelRead(streamErrConfusion)
		stream.CancelWrite(streamErrConfusion)
		conn.CloseWithError(connErrProtocol, "bad preamble")
		return
	}

	sess := newSession(stream)
	log = log.With("session", sess.id)
	if err := h.srv.RegisterSession(ctx, sess); err != nil {
		log.Error("mcp: register session", "error", err)
		stream.Close()
		return
	}
	defer h.srv.UnregisterSession(ctx, sess.id)

	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = h.srv.WithContext(ctx, sess)
	go sess.pumpNotifications(ctx)

	log.Info("mcp session open")
	h.serve(ctx, log, sess, stream)
	log.Info("mcp session closed")
}

// serve is the request loop: one JSON-RPC message per line, responses
// written back through the session so they never interleave with
// notifications.
func (h *Handler) serve(ctx context.Context, log *slog.Logger, sess *session, stream io.Reader) {
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 64*1024), MaxMessageSize)

	for sc.Scan() {
		msg := sc.Bytes()
		if len(msg) == 0 {
			continue
		}
		resp := h.srv.HandleMessage(ctx, json.RawMessage(msg))
		if resp == nil {
			continue
		}
		if err := sess.send(resp); err != nil {
			log.Error("mcp: write response", "error", err)
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		log.Error("mcp: read", "error", err)
	}
}

// session implements server.ClientSession for one QUIC stream.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	mu sync.Mutex
	w  io.Writer
}

func newSession(w io.Writer) *session {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return &session{
		id:            "quic_" + hex.EncodeToString(b),
		notifications: make(chan mcp.JSONRPCNotification, 100),
		w:             w,
	}
}

// send writes one newline-delimited JSON message. Safe for concurrent use
// by the request loop and the notification pump.
func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.w).Encode(v)
}

func (s *session) pumpNotifications(ctx context.Context) {
	for {
		select {
		case n := <-s.notifications:
			if err := s.send(n); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }
