package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	sessionerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	sessionhttp "plenum/contexts/assembly-governance/session-service/transport/http"
	"plenum/internal/platform/metrics"
)

func (s *Server) registerSessionRoutes() {
	s.mux.HandleFunc("POST /api/assembly/v1/meetings", s.handleCreateMeeting)
	s.mux.HandleFunc("GET /api/assembly/v1/meetings/{meeting_id}", s.handleMeetingSnapshot)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/transition", s.handleTransitionMeeting)

	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions", s.handleCreateMotion)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions/reorder", s.handleReorderMotions)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions/{motion_id}/open", s.handleOpenMotion)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions/{motion_id}/close", s.handleCloseMotion)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions/{motion_id}/manual-vote", s.handleManualVote)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/motions/{motion_id}/unanimity", s.handleUnanimity)

	s.mux.HandleFunc("POST /api/assembly/v1/motions/{motion_id}/ballots", s.handleCastBallot)
	s.mux.HandleFunc("POST /api/assembly/v1/motions/{motion_id}/ballots/{member_id}/cancel", s.handleCancelBallot)
	s.mux.HandleFunc("GET /api/assembly/v1/motions/{motion_id}/result", s.handleMotionResult)

	s.mux.HandleFunc("PUT /api/assembly/v1/meetings/{meeting_id}/attendance/{member_id}", s.handleSetAttendance)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/attendance/bulk-present", s.handleBulkPresent)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/proxies", s.handleSetProxy)
	s.mux.HandleFunc("POST /api/assembly/v1/meetings/{meeting_id}/proxies/{giver_id}/revoke", s.handleRevokeProxy)
	s.mux.HandleFunc("GET /api/assembly/v1/meetings/{meeting_id}/eligible-weight", s.handleEligibleWeight)
	s.mux.HandleFunc("GET /api/assembly/v1/meetings/{meeting_id}/current-motion", s.handleCurrentMotion)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.CreateMeetingHandler(r.Context(), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMeetingSnapshot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.MeetingSnapshotHandler(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransitionMeeting(w http.ResponseWriter, r *http.Request) {
	actorRole := strings.TrimSpace(r.Header.Get("X-Actor-Role"))
	if actorRole == "" {
		writeSessionError(w, http.StatusForbidden, "missing_actor_role", "X-Actor-Role header is required")
		return
	}
	var req sessionhttp.TransitionMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.TransitionMeetingHandler(r.Context(), r.PathValue("meeting_id"), actorRole, req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	metrics.MeetingTransitions.WithLabelValues(resp.Meeting.Status).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMotion(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.CreateMotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.CreateMotionHandler(r.Context(), r.PathValue("meeting_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleReorderMotions(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.ReorderMotionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := s.session.Handler.ReorderMotionsHandler(r.Context(), r.PathValue("meeting_id"), req); err != nil {
		writeSessionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenMotion(w http.ResponseWriter, r *http.Request) {
	err := s.session.Handler.OpenMotionHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("motion_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	metrics.MotionsOpened.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseMotion(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.CloseMotionHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("motion_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	metrics.MotionsClosed.WithLabelValues(resp.Decision).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleManualVote(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.ManualVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.ManualVoteHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("motion_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	metrics.BallotsCast.WithLabelValues(resp.Source).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnanimity(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.UnanimityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.UnanimityHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("motion_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	memberID := strings.TrimSpace(r.Header.Get("X-Member-Id"))
	if memberID == "" {
		writeSessionError(w, http.StatusUnauthorized, "missing_member", "X-Member-Id header is required")
		return
	}
	var req sessionhttp.CastBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.CastBallotHandler(
		r.Context(),
		r.PathValue("motion_id"),
		memberID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	if !resp.Replayed {
		metrics.BallotsCast.WithLabelValues(resp.Source).Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelBallot(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.CancelBallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	err := s.session.Handler.CancelBallotHandler(r.Context(), r.PathValue("motion_id"), r.PathValue("member_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMotionResult(w http.ResponseWriter, r *http.Request) {
	// Reveal rights follow the actor role; terminals poll without one and get
	// masked breakdowns for secret motions.
	role, ok := entities.ParseActorRole(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
	canReveal := ok && (role == entities.RolePresident || role == entities.RoleAdmin)
	resp, err := s.session.Handler.MotionResultHandler(r.Context(), r.PathValue("motion_id"), canReveal)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetAttendance(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.SetAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.SetAttendanceHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("member_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBulkPresent(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.BulkPresentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.BulkPresentHandler(r.Context(), r.PathValue("meeting_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetProxy(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.SetProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSessionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.session.Handler.SetProxyHandler(r.Context(), r.PathValue("meeting_id"), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeProxy(w http.ResponseWriter, r *http.Request) {
	err := s.session.Handler.RevokeProxyHandler(r.Context(), r.PathValue("meeting_id"), r.PathValue("giver_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEligibleWeight(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.EligibleWeightHandler(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentMotion(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.CurrentMotionHandler(r.Context(), r.PathValue("meeting_id"))
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeSessionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionerrors.ErrMeetingNotFound):
		writeSessionError(w, http.StatusNotFound, "meeting_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrMotionNotFound):
		writeSessionError(w, http.StatusNotFound, "motion_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrMemberNotFound):
		writeSessionError(w, http.StatusNotFound, "member_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrPolicyNotFound):
		writeSessionError(w, http.StatusNotFound, "policy_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrBallotNotFound):
		writeSessionError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrProxyNotFound):
		writeSessionError(w, http.StatusNotFound, "proxy_not_found", err.Error())
	case errors.Is(err, sessionerrors.ErrInvalidTransition):
		writeSessionError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, sessionerrors.ErrOpenMotionExists):
		writeSessionError(w, http.StatusConflict, "open_motion_exists", err.Error())
	case errors.Is(err, sessionerrors.ErrMeetingNotEditable):
		writeSessionError(w, http.StatusConflict, "meeting_not_editable", err.Error())
	case errors.Is(err, sessionerrors.ErrMeetingNotLive):
		writeSessionError(w, http.StatusConflict, "meeting_not_live", err.Error())
	case errors.Is(err, sessionerrors.ErrMotionAlreadyOpen):
		writeSessionError(w, http.StatusConflict, "motion_already_open", err.Error())
	case errors.Is(err, sessionerrors.ErrMotionAlreadyDecided):
		writeSessionError(w, http.StatusConflict, "motion_already_decided", err.Error())
	case errors.Is(err, sessionerrors.ErrMotionNotOpen):
		writeSessionError(w, http.StatusConflict, "motion_not_open", err.Error())
	case errors.Is(err, sessionerrors.ErrMotionOpenOrClosed):
		writeSessionError(w, http.StatusConflict, "motion_open_or_closed", err.Error())
	case errors.Is(err, sessionerrors.ErrIdempotencyConflict):
		writeSessionError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, sessionerrors.ErrConflict):
		writeSessionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, sessionerrors.ErrNotEligible):
		writeSessionError(w, http.StatusForbidden, "not_eligible", err.Error())
	case errors.Is(err, sessionerrors.ErrForbidden):
		writeSessionError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, sessionerrors.ErrSelfProxy):
		writeSessionError(w, http.StatusBadRequest, "self_proxy", err.Error())
	case errors.Is(err, sessionerrors.ErrReasonRequired):
		writeSessionError(w, http.StatusBadRequest, "reason_required", err.Error())
	case errors.Is(err, sessionerrors.ErrJustificationRequired):
		writeSessionError(w, http.StatusBadRequest, "justification_required", err.Error())
	case errors.Is(err, sessionerrors.ErrIdempotencyKeyRequired):
		writeSessionError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, sessionerrors.ErrInvalidInput):
		writeSessionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeSessionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSessionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, sessionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
