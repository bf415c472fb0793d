package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"athlete-tracker/internal/domain"
	"athlete-tracker/internal/service"
	"athlete-tracker/internal/session"
	"athlete-tracker/internal/validate"

	"github.com/rs/zerolog"
)

// Server exposes the evaluation pipeline over JSON. Handlers stay thin:
// decode, call the service, map the error to a status code.
type Server struct {
	requestSvc *service.RequestService
	verifySvc  *service.VerifyService
	statsSvc   *service.StatsService
	cleanupSvc *service.CleanupService
	cache      *session.Cache
	snapshots  *session.SnapshotStore
	logger     zerolog.Logger
}

func New(
	requestSvc *service.RequestService,
	verifySvc *service.VerifyService,
	statsSvc *service.StatsService,
	cleanupSvc *service.CleanupService,
	cache *session.Cache,
	snapshots *session.SnapshotStore,
	logger zerolog.Logger,
) *Server {
	return &Server{
		requestSvc: requestSvc,
		verifySvc:  verifySvc,
		statsSvc:   statsSvc,
		cleanupSvc: cleanupSvc,
		cache:      cache,
		snapshots:  snapshots,
		logger:     logger,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/requests", s.handleCreateRequest)
	mux.HandleFunc("GET /api/v1/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("POST /api/v1/requests/{id}/accept", s.handleAcceptRequest)
	mux.HandleFunc("POST /api/v1/requests/{id}/reject", s.handleRejectRequest)
	mux.HandleFunc("POST /api/v1/verify", s.handleVerify)
	mux.HandleFunc("GET /api/v1/athletes/{id}/stats", s.handleGetStats)
	mux.HandleFunc("POST /api/v1/athletes/{id}/stats", s.handleCreateStats)
	mux.HandleFunc("PUT /api/v1/athletes/{id}/stats", s.handleUpdateStats)
	mux.HandleFunc("POST /api/v1/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /api/v1/session", s.handleResolveSession)
}

type errorResponse struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps sentinel errors to the interop status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, domain.CodeConflict, "conflict")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, domain.CodeAuth, "forbidden")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, domain.CodeServer, "internal error")
	}
}

func actorFrom(r *http.Request) domain.Actor {
	return domain.Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Name: r.Header.Get("X-Actor-Name"),
		Role: r.Header.Get("X-Actor-Role"),
	}
}

type createRequestBody struct {
	AthleteID   string `json:"athleteId"`
	ModeratorID string `json:"moderatorId"`
	Message     string `json:"message"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	if body.AthleteID == "" || body.ModeratorID == "" {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "athleteId and moderatorId are required")
		return
	}

	req, err := s.requestSvc.CreateRequest(r.Context(), body.AthleteID, body.ModeratorID, body.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(req))
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestSvc.GetRequest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(req))
}

type acceptBody struct {
	Message       string   `json:"message"`
	Location      string   `json:"location"`
	ScheduledDate string   `json:"scheduledDate"`
	ScheduledTime string   `json:"scheduledTime"`
	Equipment     []string `json:"equipment"`
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r) {
		return
	}

	var body acceptBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	if body.ScheduledDate == "" {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "scheduledDate is required")
		return
	}

	result, err := s.requestSvc.AcceptRequest(r.Context(), r.PathValue("id"), service.AcceptInput{
		Message:       body.Message,
		Location:      body.Location,
		ScheduledDate: body.ScheduledDate,
		ScheduledTime: body.ScheduledTime,
		Equipment:     body.Equipment,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"requestId": result.RequestID,
		"otp":       result.OTP,
	})
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	if !requireModerator(w, r) {
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
			return
		}
	}

	if err := s.requestSvc.RejectRequest(r.Context(), r.PathValue("id"), body.Message); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type verifyBody struct {
	OTP string `json:"otp"`
}

type verifyErrorResponse struct {
	ErrorKind domain.VerifyErrorKind `json:"errorKind"`
	Message   string                 `json:"message"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyErrorResponse{
			ErrorKind: domain.VerifyValidationError,
			Message:   "invalid request body",
		})
		return
	}

	sess, err := s.verifySvc.Verify(r.Context(), body.OTP)
	if err != nil {
		if ve, ok := domain.AsVerifyError(err); ok {
			status := http.StatusUnauthorized
			if ve.Kind == domain.VerifyValidationError {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, verifyErrorResponse{ErrorKind: ve.Kind, Message: ve.Message})
			return
		}
		s.logger.Error().Err(err).Msg("verification failed")
		writeJSON(w, http.StatusInternalServerError, verifyErrorResponse{
			ErrorKind: domain.VerifyNetworkError,
			Message:   "verification temporarily unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func toSessionResponse(sess *domain.VerifiedSession) map[string]any {
	return map[string]any{
		"athleteSnapshot": map[string]string{
			"athleteId": sess.Snapshot.AthleteID,
			"name":      sess.Snapshot.Name,
			"sport":     sess.Snapshot.Sport,
			"rank":      sess.Snapshot.Rank,
			"location":  sess.Snapshot.Location,
			"gender":    sess.Snapshot.Gender,
		},
		"requestId":     sess.RequestID,
		"scheduledDate": sess.ScheduledDate,
	}
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	projection, err := s.statsSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(projection))
}

func (s *Server) handleCreateStats(w http.ResponseWriter, r *http.Request) {
	actor, sub, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	statsID, err := s.statsSvc.Create(r.Context(), r.PathValue("id"), sub, actor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"statsId": statsID})
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	actor, sub, ok := s.decodeSubmission(w, r)
	if !ok {
		return
	}

	statsID, err := s.statsSvc.Update(r.Context(), r.PathValue("id"), sub, actor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"statsId": statsID})
}

// decodeSubmission enforces the moderator capability, the path/body
// athlete match and the schema before anything touches the engine.
func (s *Server) decodeSubmission(w http.ResponseWriter, r *http.Request) (domain.Actor, *domain.StatsSubmission, bool) {
	actor := actorFrom(r)
	if actor.Role != domain.RoleModerator || actor.ID == "" {
		writeError(w, http.StatusForbidden, domain.CodeAuth, "moderator capability required")
		return actor, nil, false
	}

	var payload validate.StatsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return actor, nil, false
	}

	if payload.AthleteID != "" && payload.AthleteID != r.PathValue("id") {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "athleteId mismatch between path and body")
		return actor, nil, false
	}

	sub, err := validate.Normalize(&payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, err.Error())
		return actor, nil, false
	}
	return actor, sub, true
}

type cleanupBody struct {
	OTP       string `json:"otp"`
	AthleteID string `json:"athleteId"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var body cleanupBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	// Always succeeds from the caller's perspective.
	s.cleanupSvc.Cleanup(r.Context(), body.OTP, body.AthleteID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleResolveSession recovers the verified session after a client reload,
// falling back from the in-memory cache to the durable snapshot.
func (s *Server) handleResolveSession(w http.ResponseWriter, r *http.Request) {
	otp := r.URL.Query().Get("otp")
	athleteID := r.URL.Query().Get("athleteId")
	if otp == "" && athleteID == "" {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "otp or athleteId is required")
		return
	}

	sess, ok := s.cache.Resolve(nil, nil, otp, s.snapshots, athleteID)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(&sess))
}

func requireModerator(w http.ResponseWriter, r *http.Request) bool {
	actor := actorFrom(r)
	if actor.Role != domain.RoleModerator || actor.ID == "" {
		writeError(w, http.StatusForbidden, domain.CodeAuth, "moderator capability required")
		return false
	}
	return true
}
