package httpapi

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/usecase"
)

type Handler struct {
	summaryService   *usecase.SummaryService
	ticketService    *usecase.TicketService
	frequencyService *usecase.FrequencyService
	randomService    *usecase.RandomService
	location         *time.Location
	logger           *logging.Logger
	validator        *validator.Validate
	now              func() time.Time
}

func NewHandler(
	summaryService *usecase.SummaryService,
	ticketService *usecase.TicketService,
	frequencyService *usecase.FrequencyService,
	randomService *usecase.RandomService,
	location *time.Location,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if location == nil {
		location = time.UTC
	}
	if randomService == nil {
		randomService = usecase.NewRandomService()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("query"); name != "" {
			return name
		}
		return field.Name
	})

	return &Handler{
		summaryService:   summaryService,
		ticketService:    ticketService,
		frequencyService: frequencyService,
		randomService:    randomService,
		location:         location,
		logger:           logger,
		validator:        v,
		now:              time.Now,
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return newParamError(fieldErrs)
		}
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
