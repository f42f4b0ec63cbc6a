package httpapi

import (
	"net/http"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

// settledMaxAge is how long clients may cache results of a finished day.
const settledMaxAge = 3600

// settled reports whether date is before today in the service timezone.
func (h *Handler) settled(date string) bool {
	return date != "" && date < lottery.FormatDate(lottery.Today(h.now(), h.location))
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSummary")
	defer span.End()

	query := querySummary(r.URL.Query())
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.summaryService.GetSummary(ctx, usecase.SummaryInput{Date: date, Region: query.Region})
	if err != nil {
		h.logger.WarnContext(ctx, "get summary failed", "date", query.Date, "region", query.Region, "error", err)
		writeError(ctx, w, err)
		return
	}

	if summary.Available && h.settled(summary.Date) {
		setCacheControl(w, settledMaxAge)
	} else {
		setCacheControl(w, 0)
	}
	writeSuccess(ctx, w, http.StatusOK, summary)
}

func (h *Handler) CheckTicket(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CheckTicket")
	defer span.End()

	query := queryTicket(r.URL.Query())
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}
	date, err := parseOptionalDate(query.Date)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.ticketService.Check(ctx, usecase.TicketCheckInput{
		Date:     date,
		Region:   query.Region,
		Province: query.Province,
		Number:   query.Number,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "check ticket failed",
			"date", query.Date,
			"region", query.Region,
			"province", query.Province,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	if h.settled(query.Date) {
		setCacheControl(w, settledMaxAge)
	} else {
		setCacheControl(w, 0)
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFrequencies")
	defer span.End()

	query, err := queryFrequency(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.frequencyService.Top(ctx, query.Region, query.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list frequencies failed", "region", query.Region, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
