// Package mcpquic is the QUIC transport for the MCP endpoint. A connection
// carries exactly one session: the client opens a single bidirectional
// stream, writes a 4-byte preamble, then both sides exchange
// newline-delimited JSON-RPC messages on that stream.
package mcpquic

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// Protocol is the ALPN token that routes a QUIC connection to this
	// transport.
	Protocol = "gaffer-mcp-v1"

	// preamble is written by the client before any JSON-RPC traffic. It
	// catches peers that negotiated the right ALPN but speak something
	// else on the stream.
	preamble = "MCP1"

	// MaxMessageSize bounds a single JSON-RPC line in either direction.
	MaxMessageSize = 10 << 20

	IdleTimeout = 5 * time.Minute
	KeepAlive   = 30 * time.Second
)

// QUICConfig is shared by the server listener and the client dialer.
func QUICConfig() *quic.Config {
	return &quic.Config{
		MaxStreamReceiveWindow:     10 << 20,
		MaxConnectionReceiveWindow: 50 << 20,
		MaxIdleTimeout:             IdleTimeout,
		KeepAlivePeriod:            KeepAlive,
	}
}

const (
	streamErrConfusion quic.StreamErrorCode = 0x02

	connErrNone     quic.ApplicationErrorCode = 0x00
	connErrALPN     quic.ApplicationErrorCode = 0x01
	connErrProtocol quic.ApplicationErrorCode = 0x03
)

var (
	// ErrBadPreamble reports a stream that did not open with "MCP1".
	ErrBadPreamble = errors.New(`stream preamble missing: expected "MCP1"`)
	// ErrUnsupportedALPN reports a connection negotiated for another protocol.
	ErrUnsupportedALPN = errors.New("peer did not negotiate " + Protocol)
)

func readPreamble(r io.Reader) error {
	buf := make([]byte, len(preamble))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	if string(buf) != preamble {
		return fmt.Errorf("%w, got %q", ErrBadPreamble, buf)
	}
	return nil
}

func writePreamble(w io.Writer) error {
	if _, err := io.WriteString(w, preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return nil
}

// ClientTLSConfig returns the dial-side TLS config. insecure skips
// certificate verification, for servers running on a self-signed dev cert.
func ClientTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		NextProtos:         []string{Protocol},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: insecure,
	}
}
