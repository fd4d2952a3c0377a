package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/legalai-pro/internal/app/casepredict"
	"github.com/PabloGalante/legalai-pro/internal/app/conversation"
	"github.com/PabloGalante/legalai-pro/internal/domain"
	"github.com/PabloGalante/legalai-pro/internal/observability"
)

type Options struct {
	// CORSOrigins lists the allowed browser origins. "*" allows any.
	CORSOrigins []string
	// MaxBodyBytes caps request bodies. 0 disables the limit.
	MaxBodyBytes int64
	// RequestTimeout bounds each request's context. 0 disables it.
	RequestTimeout time.Duration
}

type Server struct {
	conv    *conversation.Service
	predict *casepredict.Service
	now     func() time.Time
}

func NewServer(conv *conversation.Service, predict *casepredict.Service, opts Options) http.Handler {
	s := &Server{conv: conv, predict: predict, now: time.Now}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/chat/general", s.handleGeneralChat)
	mux.HandleFunc("POST /api/chat/reset", s.handleReset)
	mux.HandleFunc("GET /api/chat/history", s.handleHistory)
	mux.HandleFunc("POST /api/case/predict", s.handlePredict)
	mux.HandleFunc("POST /api/cleanup", s.handleCleanup)

	return chainMiddlewares(mux,
		withTimeout(opts.RequestTimeout),
		withBodyLimit(opts.MaxBodyBytes),
		withCORS(opts.CORSOrigins),
		withLogging,
		withRequestID,
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createSessionResponse struct {
	Session sessionResponse `json:"session"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
}

type predictResponse struct {
	Prediction *casepredict.Prediction `json:"prediction"`
	Timestamp  time.Time               `json:"timestamp"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "LegalAI Pro API is running",
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	session, err := s.conv.StartSession(r.Context(), req.Title)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{Session: toSessionResponse(session)})
}

func (s *Server) handleGeneralChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "Message is required")
		return
	}

	sessionID, ok := s.resolveSession(w, r, req.SessionID)
	if !ok {
		return
	}

	out, err := s.conv.Ask(r.Context(), sessionID, req.Message)
	if err != nil {
		sessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  out.Reply,
		SessionID: string(out.SessionID),
		Timestamp: out.Timestamp,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	sessionID, ok := s.resolveSession(w, r, req.SessionID)
	if !ok {
		return
	}

	if err := s.conv.Reset(r.Context(), sessionID); err != nil {
		sessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Conversation history cleared"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.resolveSession(w, r, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}

	turns, err := s.conv.History(r.Context(), sessionID)
	if err != nil {
		sessionError(w, r, err)
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}

	writeJSON(w, http.StatusOK, historyResponse{SessionID: string(sessionID), Turns: turns})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req casepredict.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := s.predict.Predict(r.Context(), req)
	if err != nil {
		if errors.Is(err, casepredict.ErrMissingFields) {
			badRequest(w, "Case type, description, and jurisdiction are required")
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{Prediction: p, Timestamp: s.now()})
}

// handleCleanup ends a session. Unknown or missing sessions are not an error.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	if req.SessionID != "" {
		err := s.conv.EndSession(r.Context(), domain.SessionID(req.SessionID))
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			internalError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Session cleaned up successfully"})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

// resolveSession maps an empty session id to the default session.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request, id string) (domain.SessionID, bool) {
	if id = strings.TrimSpace(id); id != "" {
		return domain.SessionID(id), true
	}

	session, err := s.conv.DefaultSession(r.Context())
	if err != nil {
		internalError(w, r, err)
		return "", false
	}
	return session.ID, true
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, false)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "request body too large",
		})
		return false
	}
	badRequest(w, "invalid JSON body")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func sessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "session not found",
		})
		return
	}
	internalError(w, r, err)
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed",
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
