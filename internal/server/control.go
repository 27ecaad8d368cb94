package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/queue"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// DetachController is the detach surface the control API drives. Implemented
// by the detach coordinator.
type DetachController interface {
	Detach(ctx context.Context) (*models.DetachedSessionHandle, error)
	Reattach() error
	Detached() bool
}

// ControlHandler exposes the playback engine over HTTP.
// Implements the Handler interface for registration with a Router.
type ControlHandler struct {
	ctrl   *playback.Controller
	coord  DetachController
	queue  *queue.List
	logger *log.Logger
}

// NewControlHandler creates the control API handler.
func NewControlHandler(ctrl *playback.Controller, coord DetachController, q *queue.List, logger *log.Logger) *ControlHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ControlHandler{
		ctrl:   ctrl,
		coord:  coord,
		queue:  q,
		logger: shared.WithLogger(logger, "component", "control"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ControlHandler) Routes() []string {
	return []string{
		"/api/status",
		"/api/play",
		"/api/pause",
		"/api/resume",
		"/api/seek",
		"/api/volume",
		"/api/mute",
		"/api/next",
		"/api/detach",
		"/api/reattach",
		"/api/queue",
		"/api/queue/front",
	}
}

// playRequest is the body for play and queue additions. An empty id gets a
// generated one; an empty origin is inferred from the media reference.
type playRequest struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	MediaRef string `json:"media_ref"`
	Origin   string `json:"origin,omitempty"`
}

type seekRequest struct {
	Position float64 `json:"position"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type idRequest struct {
	ID string `json:"id"`
}

type statusResponse struct {
	State          models.TransportState `json:"state"`
	Queue          []models.PlaybackItem `json:"queue"`
	Detached       bool                  `json:"detached"`
	PrefetchedItem string                `json:"prefetched_item,omitempty"`
}

// ServeHTTP dispatches control requests by path.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/status":
		h.method(w, r, http.MethodGet, h.handleStatus)
	case "/api/play":
		h.method(w, r, http.MethodPost, h.handlePlay)
	case "/api/pause":
		h.method(w, r, http.MethodPost, func(w http.ResponseWriter, _ *http.Request) { h.act(w, h.ctrl.Pause) })
	case "/api/resume":
		h.method(w, r, http.MethodPost, func(w http.ResponseWriter, _ *http.Request) { h.act(w, h.ctrl.Resume) })
	case "/api/seek":
		h.method(w, r, http.MethodPost, h.handleSeek)
	case "/api/volume":
		h.method(w, r, http.MethodPost, h.handleVolume)
	case "/api/mute":
		h.method(w, r, http.MethodPost, func(w http.ResponseWriter, _ *http.Request) { h.act(w, h.ctrl.ToggleMute) })
	case "/api/next":
		h.method(w, r, http.MethodPost, func(w http.ResponseWriter, _ *http.Request) { h.act(w, h.ctrl.AdvanceOnEnded) })
	case "/api/detach":
		h.method(w, r, http.MethodPost, h.handleDetach)
	case "/api/reattach":
		h.method(w, r, http.MethodPost, func(w http.ResponseWriter, _ *http.Request) { h.act(w, h.coord.Reattach) })
	case "/api/queue":
		h.handleQueue(w, r)
	case "/api/queue/front":
		h.method(w, r, http.MethodPost, h.handlePromote)
	default:
		http.NotFound(w, r)
	}
}

func (h *ControlHandler) method(w http.ResponseWriter, r *http.Request, want string, next http.HandlerFunc) {
	if r.Method != want {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next(w, r)
}

func (h *ControlHandler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		State:          h.ctrl.State(),
		Queue:          h.queue.Items(),
		Detached:       h.coord.Detached(),
		PrefetchedItem: h.ctrl.Prefetcher().Cached(),
	})
}

func (h *ControlHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	item, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	if err := h.ctrl.LoadAndPlay(item); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *ControlHandler) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, shared.ErrInvalidInput)
		return
	}
	h.act(w, func() error { return h.ctrl.Seek(req.Position) })
}

func (h *ControlHandler) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, shared.ErrInvalidInput)
		return
	}
	h.act(w, func() error { return h.ctrl.SetVolume(req.Volume) })
}

func (h *ControlHandler) handleDetach(w http.ResponseWriter, r *http.Request) {
	session, err := h.coord.Detach(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

func (h *ControlHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, h.queue.Items())
	case http.MethodPost:
		item, ok := h.decodeItem(w, r)
		if !ok {
			return
		}
		h.queue.Add(item)
		h.writeJSON(w, http.StatusCreated, item)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			h.writeError(w, shared.ErrMissingArgument)
			return
		}
		if !h.queue.Remove(id) {
			h.writeError(w, shared.ErrMediaNotFound)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"removed": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ControlHandler) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		h.writeError(w, shared.ErrInvalidInput)
		return
	}
	if !h.queue.MoveToFront(req.ID) {
		h.writeError(w, shared.ErrMediaNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"front": req.ID})
}

// decodeItem parses a play/queue body into a playback item, generating an id
// and inferring the origin where the request leaves them out.
func (h *ControlHandler) decodeItem(w http.ResponseWriter, r *http.Request) (models.PlaybackItem, bool) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, shared.ErrInvalidInput)
		return models.PlaybackItem{}, false
	}
	if req.MediaRef == "" {
		h.writeError(w, shared.ErrMissingArgument)
		return models.PlaybackItem{}, false
	}

	item := models.PlaybackItem{
		ID:       req.ID,
		Title:    req.Title,
		Artist:   req.Artist,
		MediaRef: req.MediaRef,
	}
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	if req.Origin != "" {
		origin, err := models.ParseOrigin(req.Origin)
		if err != nil {
			h.writeError(w, shared.ErrInvalidInput)
			return models.PlaybackItem{}, false
		}
		item.Origin = origin
	} else {
		item.Origin, item.MediaRef = models.InferOrigin(req.MediaRef)
	}
	return item, true
}

// act runs a transport operation and reports the resulting state.
func (h *ControlHandler) act(w http.ResponseWriter, op func() error) {
	if err := op(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *ControlHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encoding response failed", "error", err)
	}
}

func (h *ControlHandler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps engine sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidFlag):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrNothingPlaying),
		errors.Is(err, shared.ErrQueueEmpty),
		errors.Is(err, shared.ErrDetached),
		errors.Is(err, shared.ErrNotDetached),
		errors.Is(err, shared.ErrDetachUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
