package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// GlobalPricer is the aggregator operation the HTTP layer consumes.
type GlobalPricer interface {
	GlobalPrice(ctx context.Context) (domain.GlobalPriceIndex, error)
}

// IndexCache mirrors the latest published index for status reporting. May be
// absent (nil) when caching is disabled.
type IndexCache interface {
	SetIndex(ctx context.Context, idx domain.GlobalPriceIndex) error
}

// PriceHandler serves the global price index endpoint.
type PriceHandler struct {
	pricer GlobalPricer
	cache  IndexCache
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler. cache may be nil.
func NewPriceHandler(pricer GlobalPricer, cache IndexCache, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		pricer: pricer,
		cache:  cache,
		logger: logger.With(slog.String("handler", "price")),
	}
}

// GetGlobalPrice computes a fresh index across all exchanges.
// GET /global-price
//
// Responds 200 with the index, or 503 when no exchange produced a price this
// round. Individual exchange failures are never surfaced here.
func (h *PriceHandler) GetGlobalPrice(w http.ResponseWriter, r *http.Request) {
	idx, err := h.pricer.GlobalPrice(r.Context())
	if err != nil {
		if !errors.Is(err, domain.ErrNoPriceData) {
			h.logger.ErrorContext(r.Context(), "aggregation failed",
				slog.String("error", err.Error()),
			)
		}
		writeError(w, http.StatusServiceUnavailable, "no price data available from any exchange")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetIndex(r.Context(), idx); err != nil {
			// Cache write-through is best effort.
			h.logger.WarnContext(r.Context(), "index cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, idx)
}
