package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"moderbot/internal/admin"
	"moderbot/internal/api"
	"moderbot/internal/logging"
	"moderbot/internal/services"
	"moderbot/internal/store"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusOK, api.DaemonStatus{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r)
	if !ok {
		return
	}
	entries, err := s.svc.Logs(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogListResponse{Items: entries})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.queryLimit(w, r)
	if !ok {
		return
	}
	posts, err := s.svc.Posts(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PostListResponse{Items: posts})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	post, err := s.svc.Post(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if post == nil {
		s.writeError(w, http.StatusNotFound, "post not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.PostResponse{Item: *post})
}

func (s *Server) handleBans(w http.ResponseWriter, r *http.Request) {
	bans, err := s.svc.Bans(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.BanListResponse{Items: bans})
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req api.BanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	ban, err := s.svc.Ban(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ban)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := s.svc.Unban(r.Context(), userID, adminIDFrom(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.svc.Keywords(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.KeywordListResponse{Items: keywords})
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req api.KeywordRequest
	if !s.decode(w, r, &req) {
		return
	}
	stored, err := s.svc.AddKeyword(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.KeywordResponse{Keyword: stored})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	if unescaped, err := url.PathUnescape(keyword); err == nil {
		keyword = unescaped
	}
	removed, err := s.svc.RemoveKeyword(r.Context(), keyword, adminIDFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.KeywordResponse{Keyword: removed})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.Subscriptions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubscriptionListResponse{Items: subs})
}

func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	var req api.SubscriptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	sub, err := s.svc.AddSubscription(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SubscriptionResponse{Item: sub})
}

func (s *Server) handleRemoveSubscription(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid subscription index")
		return
	}
	removed, err := s.svc.RemoveSubscription(r.Context(), index, adminIDFrom(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubscriptionResponse{Item: removed})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req api.BroadcastRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Broadcast(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// adminIDFrom reads the optional ?admin= attribution for DELETE requests.
func adminIDFrom(r *http.Request) int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("admin")), 10, 64)
	return id
}

func (s *Server) queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return limit, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *admin.KeywordNotFoundError
	switch {
	case errors.As(err, &missing):
		s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: err.Error(), Suggestion: missing.Suggestion})
	case errors.Is(err, store.ErrDuplicateKeyword), errors.Is(err, store.ErrDuplicateSubscription):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, admin.ErrSubscriptionsUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_internal_error",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
