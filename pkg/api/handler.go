package api

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mezzala/gaffer/pkg/kit"
	"github.com/mezzala/gaffer/pkg/session"
)

// NewRouter returns an http.Handler with all API routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	h := &handler{deps: d}

	wrap := func(name string, e kit.Endpoint) kit.Endpoint {
		return logging(d.Logger, name)(e)
	}
	h.resolve = wrap("resolve", resolveEndpoint(d))
	h.resolveBatch = wrap("resolve_batch", resolveBatchEndpoint(d))

	mux.HandleFunc("GET /v1/resolve/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/resolve/batch", h.handleResolveBatch)
	mux.HandleFunc("GET /v1/resolve/{name}", h.handleResolve)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	if d.Cards != nil {
		h.card = wrap("card", cardEndpoint(d))
		h.stats = wrap("stats", statsEndpoint(d))
		mux.HandleFunc("GET /v1/players/{id}", h.handleCard)
		mux.HandleFunc("GET /v1/stats", h.handleStats)
	}

	if d.Sessions != nil {
		h.createSession = wrap("create_session", createSessionEndpoint(d))
		h.getSession = wrap("get_session", getSessionEndpoint(d))
		h.recordGuess = wrap("record_guess", recordGuessEndpoint(d))
		h.deleteSession = wrap("delete_session", deleteSessionEndpoint(d))
		mux.HandleFunc("POST /v1/sessions", h.handleCreateSession)
		mux.HandleFunc("GET /v1/sessions/{id}", h.handleGetSession)
		mux.HandleFunc("POST /v1/sessions/{id}/guesses", h.handleRecordGuess)
		mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleDeleteSession)
	}

	return cors(requestID(mux))
}

type handler struct {
	deps Deps

	resolve       kit.Endpoint
	resolveBatch  kit.Endpoint
	card          kit.Endpoint
	stats         kit.Endpoint
	createSession kit.Endpoint
	getSession    kit.Endpoint
	recordGuess   kit.Endpoint
	deleteSession kit.Endpoint
}

// --- resolve ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}

	resp, err := h.resolve(r.Context(), &resolveReq{Name: name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type httpBatchRequest struct {
	Names []string `json:"names"`
}

func (h *handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.resolveBatch(r.Context(), &resolveBatchReq{Names: req.Names})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- player card / stats ---

func (h *handler) handleCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	resp, err := h.card(r.Context(), &cardReq{PlayerID: id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.stats(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- sessions ---

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	resp, err := h.createSession(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.sessionCall(w, r, func(id int64) (any, error) {
		return h.getSession(r.Context(), &sessionReq{SessionID: id})
	})
}

type httpGuessRequest struct {
	PlayerID int64 `json:"player_id"`
}

func (h *handler) handleRecordGuess(w http.ResponseWriter, r *http.Request) {
	var req httpGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.sessionCall(w, r, func(id int64) (any, error) {
		return h.recordGuess(r.Context(), &guessReq{SessionID: id, PlayerID: req.PlayerID})
	})
}

func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessionCall(w, r, func(id int64) (any, error) {
		return h.deleteSession(r.Context(), &sessionReq{SessionID: id})
	})
}

// sessionCall parses the session id, runs the endpoint, and maps ErrNotFound
// to a 404.
func (h *handler) sessionCall(w http.ResponseWriter, r *http.Request, call func(int64) (any, error)) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	resp, err := call(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status  string `json:"status"`
	Players int    `json:"players"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.deps.Cards != nil {
		n, err := h.deps.Cards.Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
			return
		}
		resp.Players = n
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID tags every request with a short correlation ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 4)
		_, _ = rand.Read(b)
		ctx := kit.WithRequestID(r.Context(), hex.EncodeToString(b))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
