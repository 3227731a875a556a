package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// statusClientClosedRequest is logged when the caller went away mid-extraction
const statusClientClosedRequest = 499

// ReceiptHandler handles receipt photo extraction
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// FormStatusResponse tells the form whether an extraction is still outstanding
type FormStatusResponse struct {
	FormID  string `json:"formId"`
	Pending bool   `json:"pending"`
}

// Extract handles POST /api/v1/receipts/extract (multipart: file, formId)
func (h *ReceiptHandler) Extract(c echo.Context) error {
	formID := strings.TrimSpace(c.FormValue("formId"))
	if formID == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "formId", Message: "Form ID is required"},
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxReceiptSize {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: service.ErrReceiptTooLarge.Error()},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded receipt")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded receipt")
		return NewInternalError(c, "Failed to read file")
	}

	result, err := h.receiptService.Extract(c.Request().Context(), formID, data, file.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReceiptEmpty),
			errors.Is(err, service.ErrReceiptTooLarge),
			errors.Is(err, service.ErrReceiptFormat),
			errors.Is(err, service.ErrReceiptTooSmall),
			errors.Is(err, service.ErrInvalidReceiptImage):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: err.Error()},
			})
		case errors.Is(err, domain.ErrExtractionSuperseded):
			return problem(c, http.StatusConflict, ErrorTypeSuperseded, "Extraction Superseded",
				"The form changed while the receipt was being read; the result was discarded")
		case errors.Is(err, domain.ErrExtractionFailed):
			return problem(c, http.StatusUnprocessableEntity, ErrorTypeExtraction, "Extraction Failed",
				"The receipt could not be read. Please enter the expense manually.")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Debug().Str("form_id", formID).Msg("Receipt extraction cancelled by client")
			return c.NoContent(statusClientClosedRequest)
		}
		log.Error().Err(err).Str("form_id", formID).Msg("Failed to extract receipt")
		return NewInternalError(c, "Failed to extract receipt")
	}

	log.Info().
		Str("form_id", formID).
		Str("store", result.Draft.Store).
		Float64("confidence", result.Draft.Confidence).
		Msg("Receipt extracted")
	return c.JSON(http.StatusOK, result)
}

// GetFormStatus handles GET /api/v1/receipts/forms/:formId
func (h *ReceiptHandler) GetFormStatus(c echo.Context) error {
	formID := c.Param("formId")
	return c.JSON(http.StatusOK, FormStatusResponse{FormID: formID, Pending: h.receiptService.Pending(formID)})
}

// CancelForm handles DELETE /api/v1/receipts/forms/:formId, sent when the form closes
func (h *ReceiptHandler) CancelForm(c echo.Context) error {
	h.receiptService.Cancel(c.Param("formId"))
	return c.NoContent(http.StatusNoContent)
}

// TouchForm handles POST /api/v1/receipts/forms/:formId/touch, sent on manual edits
func (h *ReceiptHandler) TouchForm(c echo.Context) error {
	h.receiptService.Touch(c.Param("formId"))
	return c.NoContent(http.StatusNoContent)
}
