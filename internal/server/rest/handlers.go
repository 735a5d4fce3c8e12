// Package rest is the HTTP transport: routing, authentication middleware,
// request decoding and the JSON response envelope.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/ratelimit"
	"github.com/dmitrijs2005/taskflow/internal/server/services"
)

// Options carries the services and settings the handlers need.
type Options struct {
	Users       *services.UserService
	OTP         *services.OTPService
	OAuth       *services.OAuthService
	Tasks       *services.TaskService
	Attachments *services.AttachmentService
	Health      *services.HealthService

	Limiter    ratelimit.Limiter
	LoginLimit int
	OTPLimit   int

	// Production enables secure cookies and hides 5xx messages.
	Production bool
}

type Handlers struct {
	users       *services.UserService
	otp         *services.OTPService
	oauth       *services.OAuthService
	tasks       *services.TaskService
	attachments *services.AttachmentService
	health      *services.HealthService
	limiter     ratelimit.Limiter
	loginLimit  int
	otpLimit    int
	production  bool
	logger      logging.Logger
}

func NewHandlers(o Options, l logging.Logger) *Handlers {
	limiter := o.Limiter
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &Handlers{
		users:       o.Users,
		otp:         o.OTP,
		oauth:       o.OAuth,
		tasks:       o.Tasks,
		attachments: o.Attachments,
		health:      o.Health,
		limiter:     limiter,
		loginLimit:  o.LoginLimit,
		otpLimit:    o.OTPLimit,
		production:  o.Production,
		logger:      l.With("module", "rest"),
	}
}

// throttle records a hit for key. Limiter outages fail open.
func (h *Handlers) throttle(ctx context.Context, key string, limit int) error {
	err := h.limiter.Allow(ctx, key, limit)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimited):
		return apperr.TooManyRequests("too many requests, try again later")
	default:
		h.logger.Warn(ctx, "rate limiter unavailable", "key", key, "error", err)
		return nil
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
		"time":    time.Now().UTC(),
	})
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ready(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ready"})
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid query parameter", map[string]string{name: "must be a non-negative integer"})
	}
	return n, nil
}
