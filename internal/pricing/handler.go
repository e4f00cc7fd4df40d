package pricing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian-pricing/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	printer  *message.Printer
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		printer:  message.NewPrinter(language.English),
	}
}

type resolveResponse struct {
	PriceResolution
	FinalPriceDisplay string `json:"final_price_display"`
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	res, err := h.service.Resolve(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidQuantity) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
			return
		}
		h.logger.Error("resolve price failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, resolveResponse{
		PriceResolution:   *res,
		FinalPriceDisplay: h.printer.Sprintf("%.2f", res.FinalPrice),
	})
}
