package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// IndexReader reads back the latest cached index.
type IndexReader interface {
	GetIndex(ctx context.Context) (float64, time.Time, error)
}

// StatusHandler reports the registered exchanges and, when the cache is
// enabled, the last published index.
type StatusHandler struct {
	exchanges []string
	cache     IndexReader
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. cache may be nil.
func NewStatusHandler(exchanges []string, cache IndexReader, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		exchanges: exchanges,
		cache:     cache,
		logger:    logger.With(slog.String("handler", "status")),
	}
}

// GetStatus reports service status.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"exchanges": h.exchanges,
	}

	if h.cache != nil {
		price, ts, err := h.cache.GetIndex(r.Context())
		switch {
		case err == nil:
			resp["last_price"] = price
			resp["last_published"] = ts.UnixMilli()
		case errors.Is(err, domain.ErrNotFound):
			// Nothing published yet.
		default:
			h.logger.WarnContext(r.Context(), "index cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
