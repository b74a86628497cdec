// Package api exposes HTTP handlers for the stats service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"example.com/activitystats/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service      *domain.Service
	clock        quartz.Clock
	logger       *zap.Logger
	defaultLimit int
	maxLimit     int
}

// HandlerOption configures optional Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the clock used when a request omits its reference date.
func WithClock(clock quartz.Clock) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLogger sets the logger used for server errors.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithPageLimits sets the default and maximum page sizes.
func WithPageLimits(defaultLimit, maxLimit int) HandlerOption {
	return func(h *Handler) {
		h.defaultLimit = defaultLimit
		h.maxLimit = maxLimit
	}
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:      service,
		clock:        quartz.NewReal(),
		logger:       zap.NewNop(),
		defaultLimit: 20,
		maxLimit:     100,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) computeStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerParam(w, r)
	if !ok {
		return
	}
	periodType, err := domain.ParsePeriodType(r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	ref, err := h.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	summary, err := h.service.ComputeStats(r.Context(), ownerID, periodType, ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (h *Handler) computeRange(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerParam(w, r)
	if !ok {
		return
	}
	from, err := parseInstant(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "from: "+err.Error())
		return
	}
	to, err := parseInstant(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "to: "+err.Error())
		return
	}

	summary, err := h.service.ComputeRange(r.Context(), ownerID, from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (h *Handler) statsHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerParam(w, r)
	if !ok {
		return
	}
	periodType, err := domain.ParsePeriodType(r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	summaries, err := h.service.StatsHistory(r.Context(), ownerID, periodType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	items := make([]SummaryView, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, toSummaryView(s))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{PeriodType: string(periodType), Items: items})
}

func (h *Handler) allTimeStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerParam(w, r)
	if !ok {
		return
	}

	summary, err := h.service.AllTimeStats(r.Context(), ownerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := AllTimeResponse{Found: summary != nil}
	if summary != nil {
		view := toSummaryView(*summary)
		resp.Summary = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) refreshStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerParam(w, r)
	if !ok {
		return
	}
	ref, err := h.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	summaries, err := h.service.RefreshStats(r.Context(), ownerID, ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.service.InvalidateCaches(r.Context()); err != nil {
		h.logger.Warn("cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
	}

	items := make([]SummaryView, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, toSummaryView(s))
	}
	writeJSON(w, http.StatusOK, RefreshResponse{OwnerID: ownerID, Items: items})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	dimension, err := domain.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	page, err := h.pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	box, err := parseBoundingBox(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	board, err := h.service.Leaderboard(r.Context(), domain.LeaderboardQuery{Dimension: dimension, Page: page, Box: box})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboardResponse(board))
}

func (h *Handler) communityFeed(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	box, err := parseBoundingBox(r)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	feed, err := h.service.CommunityFeed(r.Context(), domain.FeedQuery{Page: page, Box: box})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedResponse(feed))
}

func ownerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing owner id")
		return "", false
	}
	return ownerID, true
}

func (h *Handler) referenceDate(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.clock.Now("api", "reference_date"), nil
	}
	return parseInstant(raw)
}

// parseInstant accepts RFC 3339 timestamps or bare YYYY-MM-DD dates (UTC midnight).
func parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("timestamp is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func (h *Handler) pageRequest(r *http.Request) (domain.PageRequest, error) {
	page, err := intQuery(r, "page", 1)
	if err != nil {
		return domain.PageRequest{}, err
	}
	limit, err := intQuery(r, "limit", h.defaultLimit)
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.NewPageRequest(page, limit, h.maxLimit), nil
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

var boxParams = [4]string{"min_lat", "max_lat", "min_lng", "max_lng"}

// parseBoundingBox returns nil when no box parameter is present. A partial box is rejected.
func parseBoundingBox(r *http.Request) (*domain.BoundingBox, error) {
	q := r.URL.Query()
	var values [4]float64
	present := 0
	for i, key := range boxParams {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number", domain.ErrInvalidBoundingBox, key)
		}
		values[i] = v
		present++
	}
	switch present {
	case 0:
		return nil, nil
	case len(boxParams):
	default:
		return nil, fmt.Errorf("%w: min_lat, max_lat, min_lng and max_lng must be given together", domain.ErrInvalidBoundingBox)
	}

	box := &domain.BoundingBox{MinLat: values[0], MaxLat: values[1], MinLng: values[2], MaxLng: values[3]}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return box, nil
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInputError(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "stats store is unavailable")
	case errors.Is(err, domain.ErrUpsertConflict):
		writeError(w, http.StatusConflict, "conflict", "concurrent update, retry the request")
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
