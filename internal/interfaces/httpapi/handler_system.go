package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) PrivacyPolicy(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PrivacyPolicy")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, usecase.NewPrivacyPolicy(lottery.Today(h.now(), h.location)))
}

func (h *Handler) RandomNumbers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RandomNumbers")
	defer span.End()

	query, err := queryRandom(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	setCacheControl(w, 0)
	result, err := h.randomService.Generate(usecase.RandomInput{
		Min:    query.MinValue,
		Max:    query.MaxValue,
		Count:  query.Count,
		Unique: query.Unique,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

// NotFound answers unknown routes with the regular error envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.NotFound")
	defer span.End()

	writeError(ctx, w, fmt.Errorf("%w: no route for %s %s", usecase.ErrNotFound, r.Method, r.URL.Path))
}
