package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mezzala/gaffer/pkg/mcpquic"
)

// cmdCall talks to a running server over the MCP QUIC transport. With no
// -tool it lists the available tools; with one it invokes it and prints
// the text content of the result.
func cmdCall(args []string) {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8430", "server address")
	tool := fs.String("tool", "", "tool to invoke (e.g. resolve_player)")
	toolArgs := fs.String("args", "{}", "tool arguments as JSON")
	insecure := fs.Bool("insecure", true, "skip TLS verification (self-signed dev certs)")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mcpquic.Dial(ctx, *addr, mcpquic.ClientTLSConfig(*insecure))
	if err != nil {
		logger.Error("connect failed", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if *tool == "" {
		tools, err := client.ListTools(ctx)
		if err != nil {
			logger.Error("list tools failed", "error", err)
			os.Exit(1)
		}
		for _, t := range tools.Tools {
			fmt.Printf("%-16s %s\n", t.Name, t.Description)
		}
		return
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(*toolArgs), &parsed); err != nil {
		logger.Error("invalid -args JSON", "error", err)
		os.Exit(1)
	}

	result, err := client.CallTool(ctx, *tool, parsed)
	if err != nil {
		logger.Error("tool call failed", "tool", *tool, "error", err)
		os.Exit(1)
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			fmt.Println(text.Text)
		}
	}
	if result.IsError {
		os.Exit(1)
	}
}
