package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mezzala/gaffer/pkg/kit"
	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
	"github.com/mezzala/gaffer/pkg/session"
)

// maxBatchSize bounds one batch resolve request.
const maxBatchSize = 100

// CardProvider serves the player-card and stats queries. *roster.Store
// implements it; deployments resolving against a bare snapshot may leave it
// nil, which disables the card and stats endpoints.
type CardProvider interface {
	Card(ctx context.Context, playerID int64) (*roster.Card, error)
	Stats(ctx context.Context) (*roster.Stats, error)
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators behind the API endpoints.
type Deps struct {
	Resolver *match.Resolver
	Cards    CardProvider
	Sessions *session.Store
	Logger   *slog.Logger
}

// Shared request/response types used by both HTTP and MCP transports.

type resolveReq struct {
	Name string
}

type resolveBatchReq struct {
	Names []string
}

type cardReq struct {
	PlayerID int64
}

type guessReq struct {
	SessionID int64
	PlayerID  int64
}

type sessionReq struct {
	SessionID int64
}

// resolveResponse is the wire form of a Resolution. Exactly one of the
// status variants is reported; the engine never returns a confidence value,
// only the decision.
type resolveResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Count    int            `json:"count,omitempty"`
	Player   *roster.Player `json:"player,omitempty"`
	Clubs    []roster.Stint `json:"clubs,omitempty"`
	TopClubs []string       `json:"top_clubs,omitempty"`
}

type batchResponse struct {
	Results []*resolveResponse `json:"results"`
}

type sessionResponse struct {
	Session *session.Session `json:"session"`
	Players []session.Guess  `json:"players,omitempty"`
}

func resolveEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		res, err := d.Resolver.Resolve(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		return d.renderResolution(ctx, res), nil
	}
}

func resolveBatchEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveBatchReq)
		if len(req.Names) == 0 {
			return nil, fmt.Errorf("names array is empty")
		}
		if len(req.Names) > maxBatchSize {
			return nil, fmt.Errorf("too many names (max %d, got %d)", maxBatchSize, len(req.Names))
		}
		results := make([]*resolveResponse, len(req.Names))
		for i, name := range req.Names {
			res, err := d.Resolver.Resolve(ctx, name)
			if err != nil {
				return nil, err
			}
			results[i] = d.renderResolution(ctx, res)
		}
		return batchResponse{Results: results}, nil
	}
}

// renderResolution maps an engine Resolution to its wire form, attaching the
// club history when a card provider is available.
func (d Deps) renderResolution(ctx context.Context, res match.Resolution) *resolveResponse {
	switch res.Outcome {
	case match.OutcomeFound:
		out := &resolveResponse{
			Status:  res.Outcome.String(),
			Message: "Player found!",
			Player:  res.Player,
		}
		if d.Cards != nil {
			card, err := d.Cards.Card(ctx, res.Player.ID)
			if err != nil {
				d.Logger.Warn("card lookup failed", "player", res.Player.ID, "error", err)
			} else {
				out.Clubs = card.Clubs
				out.TopClubs = card.TopClubs
			}
		}
		return out
	case match.OutcomeAmbiguous:
		return &resolveResponse{
			Status:  res.Outcome.String(),
			Message: fmt.Sprintf("Found %d players with similar names. Please be more specific.", res.Distinct),
			Count:   res.Distinct,
		}
	case match.OutcomeNeedsFullName:
		return &resolveResponse{
			Status:  res.Outcome.String(),
			Message: "Please enter the player's first and last name.",
		}
	default:
		return &resolveResponse{
			Status:  res.Outcome.String(),
			Message: "Player not found. Check the spelling and try again.",
		}
	}
}

func cardEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*cardReq)
		return d.Cards.Card(ctx, req.PlayerID)
	}
}

func statsEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return d.Cards.Stats(ctx)
	}
}

func createSessionEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		sess, err := d.Sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
		return sessionResponse{Session: sess}, nil
	}
}

func getSessionEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*sessionReq)
		sess, err := d.Sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		guesses, err := d.Sessions.Guesses(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		return sessionResponse{Session: sess, Players: guesses}, nil
	}
}

func recordGuessEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*guessReq)
		return d.Sessions.RecordGuess(ctx, req.SessionID, req.PlayerID)
	}
}

func deleteSessionEndpoint(d Deps) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*sessionReq)
		if err := d.Sessions.Delete(ctx, req.SessionID); err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": true}, nil
	}
}

// logging wraps an endpoint with duration and error logging.
func logging(logger *slog.Logger, name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			attrs := []any{
				"endpoint", name,
				"transport", kit.GetTransport(ctx),
				"request_id", kit.GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				logger.Error("endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("endpoint served", attrs...)
			}
			return resp, err
		}
	}
}
