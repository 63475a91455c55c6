package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mindwell-app/mindwell-backend/internal/app/chat"
	"github.com/mindwell-app/mindwell-backend/internal/app/referrals"
	"github.com/mindwell-app/mindwell-backend/internal/app/reports"
	"github.com/mindwell-app/mindwell-backend/internal/app/sessions"
	"github.com/mindwell-app/mindwell-backend/internal/domain"
	"github.com/mindwell-app/mindwell-backend/internal/observability"
)

type identityCtxKey struct{}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

func identityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}

type Server struct {
	chat      *chat.Service
	sessions  *sessions.Reconciler
	reports   *reports.Service
	referrals *referrals.Service
	verifier  domain.TokenVerifier
}

func NewServer(
	chatSvc *chat.Service,
	reconciler *sessions.Reconciler,
	reportSvc *reports.Service,
	referralSvc *referrals.Service,
	verifier domain.TokenVerifier,
) http.Handler {
	s := &Server{
		chat:      chatSvc,
		sessions:  reconciler,
		reports:   reportSvc,
		referrals: referralSvc,
		verifier:  verifier,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withAuth)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sessionRef}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sessionRef}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/mood/analyze", s.handleMoodAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/referrals", s.handleCreateReferral).Methods(http.MethodPost)
	api.HandleFunc("/referrals/{id}/respond", s.handleRespondReferral).Methods(http.MethodPost)

	return chainMiddlewares(r, withRequestID, withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type turnDTO struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

type chatRequest struct {
	Prompt     string    `json:"prompt"`
	History    []turnDTO `json:"history"`
	SessionRef string    `json:"sessionRef,omitempty"`
}

type sessionSummary struct {
	SessionRef string         `json:"sessionRef"`
	Prompt     string         `json:"prompt,omitempty"`
	Reply      string         `json:"reply,omitempty"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt,omitempty"`
	History    []domain.Turn `json:"history,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionSummary `json:"sessions"`
}

type getSessionResponse struct {
	Session sessionSummary `json:"session"`
}

type moodAnalyzeRequest struct {
	Answers []domain.Answer `json:"answers"`
}

type createReferralRequest struct {
	StudentID string `json:"studentId"`
	College   string `json:"college"`
	Message   string `json:"message,omitempty"`
}

type respondReferralRequest struct {
	CounselorID string `json:"counselorId"`
	Action      string `json:"action"`
}

// ─────────────────────────────────────────────
// Chat
// ─────────────────────────────────────────────

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		unauthorized(w, "Authentication required")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(w, "Prompt is required")
		return
	}

	stream := newEventStream(w)

	res, err := s.chat.Run(r.Context(), chat.TurnInput{
		Identity:   identity,
		Prompt:     req.Prompt,
		History:    historyFromDTO(req.History),
		SessionRef: domain.SessionRef(req.SessionRef),
	}, stream.WriteFragment)

	if err != nil {
		if stream.Opened() {
			// Bytes already went out; the status line is spoken for. The
			// client learns about the interruption in-band.
			message, _ := chatErrorPayload(err)
			_ = stream.WriteError(message, err.Error())
			return
		}
		message, status := chatErrorPayload(err)
		writeJSON(w, status, map[string]string{"error": message, "details": err.Error()})
		return
	}

	if werr := stream.WriteDone(res.SessionRef, res.Videos); werr != nil {
		observability.LoggerFromContext(r.Context()).Warn("writing done event failed", "error", werr)
	}
}

// chatErrorPayload maps a turn failure to the user-facing message and,
// for pre-stream failures, the HTTP status.
func chatErrorPayload(err error) (string, int) {
	if errors.Is(err, domain.ErrNoCredentials) {
		return "AI service currently unavailable. Please try again later.", http.StatusServiceUnavailable
	}

	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		if upErr.Code == domain.UpstreamRateLimited {
			return "Daily limit reached for all available keys", http.StatusServiceUnavailable
		}
		return "Therapy session interrupted", upErr.Status()
	}

	return "Therapy session interrupted", http.StatusInternalServerError
}

func historyFromDTO(dtos []turnDTO) []domain.Turn {
	turns := make([]domain.Turn, 0, len(dtos))
	for _, d := range dtos {
		role := domain.RoleUser
		if d.Role == string(domain.RoleModel) {
			role = domain.RoleModel
		}
		parts := make([]domain.Part, 0, len(d.Parts))
		for _, p := range d.Parts {
			parts = append(parts, domain.Part{Text: p.Text})
		}
		turns = append(turns, domain.Turn{Role: role, Parts: parts})
	}
	return turns
}

// ─────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	list, err := s.sessions.List(r.Context(), identity)
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]sessionSummary, 0, len(list))
	for _, sess := range list {
		out = append(out, toSessionSummary(sess, false))
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	ref := domain.SessionRef(mux.Vars(r)["sessionRef"])

	sess, err := s.sessions.Get(r.Context(), identity, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{Session: toSessionSummary(sess, true)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	ref := domain.SessionRef(mux.Vars(r)["sessionRef"])

	if err := s.sessions.Delete(r.Context(), identity, ref); err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Session deleted successfully",
		"success": true,
	})
}

func toSessionSummary(sess *domain.Session, includeHistory bool) sessionSummary {
	out := sessionSummary{
		SessionRef: string(sess.Ref),
		Prompt:     sess.Prompt,
		Reply:      sess.Reply,
	}
	if !sess.CreatedAt.IsZero() {
		out.CreatedAt = sess.CreatedAt.UTC().Format(time.RFC3339)
	} else {
		// Legacy records may predate the createdAt field.
		out.CreatedAt = string(sess.Ref)
	}
	if !sess.UpdatedAt.IsZero() {
		out.UpdatedAt = sess.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if includeHistory {
		out.History = sess.Turns
	}
	return out
}

// ─────────────────────────────────────────────
// Mood reports
// ─────────────────────────────────────────────

func (s *Server) handleMoodAnalyze(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req moodAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Answers) == 0 {
		badRequest(w, "Test data is required")
		return
	}

	analysis, err := s.reports.Analyze(r.Context(), identity, req.Answers)
	if err != nil {
		message, status := chatErrorPayload(err)
		writeJSON(w, status, map[string]string{"error": message, "details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// ─────────────────────────────────────────────
// Referrals
// ─────────────────────────────────────────────

func (s *Server) handleCreateReferral(w http.ResponseWriter, r *http.Request) {
	var req createReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.StudentID == "" {
		badRequest(w, "studentId is required")
		return
	}

	referral, err := s.referrals.Create(r.Context(), referrals.CreateInput{
		StudentID: req.StudentID,
		College:   req.College,
		Message:   req.Message,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Request created successfully",
		"requestId": referral.ID,
	})
}

func (s *Server) handleRespondReferral(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req respondReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	err := s.referrals.Respond(r.Context(), id, req.CounselorID, req.Action)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Request " + req.Action + "ed successfully.",
		})
	case errors.Is(err, referrals.ErrInvalidAction):
		badRequest(w, err.Error())
	case errors.Is(err, referrals.ErrAlreadyResponded):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Request not found"})
	default:
		internalError(w, r, err)
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
