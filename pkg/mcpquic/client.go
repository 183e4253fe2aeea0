package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// Client is a connected MCP client on the QUIC transport.
type Client struct {
	conn   *quic.Conn
	stream *quic.Stream
	mcp    *client.Client
}

// Dial connects to addr, sends the stream preamble and performs the MCP
// initialize round trip. A nil tlsCfg dials insecurely, for servers on a
// self-signed dev cert.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*Client, error) {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}

	conn, err := quic.DialAddr(ctx, addr, tlsCfg, QUICConfig())
	if err != nil {
		return nil, fmt.Errorf("quic dial %s: %w", addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != Protocol {
		conn.CloseWithError(connErrALPN, "bad ALPN")
		return nil, fmt.Errorf("%w: negotiated %q", ErrUnsupportedALPN, alpn)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(connErrProtocol, "stream open failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := writePreamble(stream); err != nil {
		stream.Close()
		conn.CloseWithError(connErrProtocol, "preamble failed")
		return nil, err
	}

	c := &Client{conn: conn, stream: stream}
	mc := client.NewClient(transport.NewIO(stream, streamWriter{stream}, emptyReader{}))
	if err := mc.Start(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("mcp start: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "gaffer-cli", Version: "1.0.0"}
	if _, err := mc.Initialize(initCtx, req); err != nil {
		c.close()
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}

	c.mcp = mc
	return c, nil
}

func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	return c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return c.mcp.CallTool(ctx, req)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.mcp.Ping(ctx)
}

func (c *Client) Close() error {
	if c.mcp != nil {
		c.mcp.Close()
	}
	return c.close()
}

func (c *Client) close() error {
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn != nil {
		c.conn.CloseWithError(connErrNone, "client closing")
	}
	return nil
}

// streamWriter and emptyReader adapt a QUIC stream to the stdio-shaped
// transport the MCP client library expects.
type streamWriter struct{ s *quic.Stream }

func (w streamWriter) Write(p []byte) (int, error) { return w.s.Write(p) }
func (w streamWriter) Close() error                { return w.s.Close() }

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyReader) Close() error             { return nil }
