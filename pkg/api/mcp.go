package api

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mezzala/gaffer/pkg/kit"
)

// RegisterMCPTools registers the resolve, card, and stats MCP tools. The
// tools dispatch to the same endpoints as the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, d Deps) {
	registerResolve(srv, d)
	registerResolveBatch(srv, d)
	if d.Cards != nil {
		registerCard(srv, d)
		registerStats(srv, d)
	}
}

func registerResolve(srv *server.MCPServer, d Deps) {
	tool := mcp.NewTool("resolve_player",
		mcp.WithDescription("Resolve a free-text player name guess to a canonical roster player, tolerating typos, missing accents, and mononyms."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The player name to resolve")),
	)

	kit.RegisterMCPTool(srv, tool, logging(d.Logger, "resolve")(resolveEndpoint(d)),
		func(req mcp.CallToolRequest) (any, error) {
			name, _ := req.GetArguments()["name"].(string)
			return &resolveReq{Name: name}, nil
		})
}

func registerResolveBatch(srv *server.MCPServer, d Deps) {
	tool := mcp.NewTool("resolve_batch",
		mcp.WithDescription("Resolve multiple player name guesses (up to 100) in one call."),
		mcp.WithString("names", mcp.Required(), mcp.Description("Comma-separated list of player names")),
	)

	kit.RegisterMCPTool(srv, tool, logging(d.Logger, "resolve_batch")(resolveBatchEndpoint(d)),
		func(req mcp.CallToolRequest) (any, error) {
			namesStr, _ := req.GetArguments()["names"].(string)
			names := strings.Split(namesStr, ",")
			for i := range names {
				names[i] = strings.TrimSpace(names[i])
			}
			return &resolveBatchReq{Names: names}, nil
		})
}

func registerCard(srv *server.MCPServer, d Deps) {
	tool := mcp.NewTool("player_card",
		mcp.WithDescription("Fetch a resolved player's card: identity, club history, and top clubs."),
		mcp.WithNumber("player_id", mcp.Required(), mcp.Description("Canonical player ID")),
	)

	kit.RegisterMCPTool(srv, tool, logging(d.Logger, "card")(cardEndpoint(d)),
		func(req mcp.CallToolRequest) (any, error) {
			id, _ := req.GetArguments()["player_id"].(float64)
			return &cardReq{PlayerID: int64(id)}, nil
		})
}

func registerStats(srv *server.MCPServer, d Deps) {
	tool := mcp.NewTool("roster_stats",
		mcp.WithDescription("Roster totals and top nationality/position breakdowns."),
	)

	kit.RegisterMCPTool(srv, tool, logging(d.Logger, "stats")(statsEndpoint(d)),
		func(_ mcp.CallToolRequest) (any, error) {
			return nil, nil
		})
}
