// Package admin exposes the operator HTTP surface: health, manual drain and
// the guarded archive replay.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/im-discord-relay/internal/service/drain"
	"github.com/webitel/im-discord-relay/internal/service/replay"
)

// AdminSignal is the ready-channel value published by a manual drain.
const AdminSignal = "admin"

type Store interface {
	Ping(ctx context.Context) error
	Depths(ctx context.Context) (pending, processed int64, err error)
	Signal(ctx context.Context, value string) error
}

type Replayer interface {
	Enabled() bool
	Run(ctx context.Context) (replay.Result, error)
}

type ListenerState interface {
	Running() bool
}

// FailureSource yields drain items that could not be dispatched.
type FailureSource interface {
	Failures() <-chan drain.Failure
}

// maxFailuresPerRequest bounds how many failures one request takes off the channel.
const maxFailuresPerRequest = 100

type Handler struct {
	store     Store
	replayer  Replayer
	listener  ListenerState
	failures  FailureSource
	logger    *slog.Logger
	replaying atomic.Bool
}

func NewHandler(st Store, replayer Replayer, listener ListenerState, failures FailureSource, logger *slog.Logger) *Handler {
	return &Handler{store: st, replayer: replayer, listener: listener, failures: failures, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Route("/admin", func(r chi.Router) {
		r.Post("/drain", h.Drain)
		r.Post("/replay", h.Replay)
		r.Get("/failures", h.Failures)
	})
	return r
}

type healthResponse struct {
	Status    string `json:"status"`
	Draining  bool   `json:"draining"`
	Pending   int64  `json:"pending"`
	Processed int64  `json:"processed"`
	Error     string `json:"error,omitempty"`
}

// Health reports store connectivity and the control queue depths.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Status: "ok", Draining: h.listener.Running()}

	err := h.store.Ping(r.Context())
	if err == nil {
		res.Pending, res.Processed, err = h.store.Depths(r.Context())
	}
	if err != nil {
		res.Status, res.Error = "unavailable", err.Error()
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Drain triggers one drain cycle, exactly as an external producer would.
func (h *Handler) Drain(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Signal(r.Context(), AdminSignal); err != nil {
		h.logger.Error("ADMIN_DRAIN_FAILED", "err", err)
		http.Error(w, "signal failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Replay runs the archive replay synchronously. It is refused while the
// safety switch is off and while another replay is in progress.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	if !h.replayer.Enabled() {
		http.Error(w, replay.ErrDisabled.Error(), http.StatusForbidden)
		return
	}
	if !h.replaying.CompareAndSwap(false, true) {
		http.Error(w, "replay already running", http.StatusConflict)
		return
	}
	defer h.replaying.Store(false)

	h.logger.Warn("ADMIN_REPLAY_REQUESTED", "request_id", middleware.GetReqID(r.Context()))

	res, err := h.replayer.Run(r.Context())
	if errors.Is(err, replay.ErrDisabled) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"published": res.Published,
			"skipped":   res.Skipped,
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"published": res.Published, "skipped": res.Skipped})
}

type failureResponse struct {
	Error string `json:"error"`
	Raw   string `json:"raw"`
}

// Failures takes the drain failures reported since the last call off the
// channel. Each failure is returned once; the items stay in the processed queue.
func (h *Handler) Failures(w http.ResponseWriter, _ *http.Request) {
	res := []failureResponse{}
	if h.failures != nil {
		ch := h.failures.Failures()
	collect:
		for len(res) < maxFailuresPerRequest {
			select {
			case f := <-ch:
				res = append(res, failureResponse{Error: f.Error(), Raw: string(f.Raw)})
			default:
				break collect
			}
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
