package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) upload(t *testing.T, formID, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if formID != "" {
		require.NoError(t, w.WriteField("formId", formID))
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="receipt"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/receipts/extract", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func withGeminiKey(t *testing.T, s *testServer) {
	t.Helper()
	rec := s.do(http.MethodPut, "/api/v1/settings", `{"geminiKey":"gm-key"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// webp is passed through without decoding
var fakeWebP = []byte("RIFF----WEBPVP8 fake receipt")

func TestReceiptHandler_Extract(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	withGeminiKey(t, s)

	rec := s.upload(t, "form-1", "image/webp", fakeWebP)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.ReceiptResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Fresh Market", result.Draft.Store)
	assert.Equal(t, domain.ProvenanceReceipt, result.Draft.Source)

	calls := s.extractor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gm-key", calls[0].APIKey)
	assert.Equal(t, "image/webp", calls[0].MimeType)

	// Extraction never stores a transaction
	records, err := s.txRepo.List(t.Context(), domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReceiptHandler_ExtractValidation(t *testing.T) {
	tests := []struct {
		name        string
		formID      string
		contentType string
		data        []byte
		field       string
	}{
		{"missing form id", "", "image/webp", fakeWebP, "formId"},
		{"missing file", "form-1", "", nil, "file"},
		{"unsupported format", "form-1", "application/pdf", []byte("%PDF"), "file"},
		{"corrupt png", "form-1", "image/png", []byte("not a png"), "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOptions{})
			withGeminiKey(t, s)

			rec := s.upload(t, tt.formID, tt.contentType, tt.data)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			p := decodeProblem(t, rec)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, tt.field, p.Errors[0].Field)
			assert.Empty(t, s.extractor.Calls())
		})
	}
}

func TestReceiptHandler_ExtractionFailed(t *testing.T) {
	t.Run("no api key", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})

		rec := s.upload(t, "form-1", "image/webp", fakeWebP)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, ErrorTypeExtraction, decodeProblem(t, rec).Type)
	})

	t.Run("extractor error", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})
		withGeminiKey(t, s)
		s.extractor.ExtractFn = func(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error) {
			return domain.ReceiptExtraction{}, fmt.Errorf("%w: unreadable", domain.ErrExtractionFailed)
		}

		rec := s.upload(t, "form-1", "image/webp", fakeWebP)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unwrapped extractor error", func(t *testing.T) {
		s := newTestServer(t, serverOptions{})
		withGeminiKey(t, s)
		s.extractor.ExtractFn = func(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error) {
			return domain.ReceiptExtraction{}, errors.New("quota exceeded")
		}

		rec := s.upload(t, "form-1", "image/webp", fakeWebP)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestReceiptHandler_ManualEditSupersedes(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	withGeminiKey(t, s)
	s.extractor.ExtractFn = func(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error) {
		// The user edits the form while the extraction is in flight
		rec := s.do(http.MethodPost, "/api/v1/receipts/forms/form-1/touch", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		return domain.ReceiptExtraction{Store: "Late"}, nil
	}

	rec := s.upload(t, "form-1", "image/webp", fakeWebP)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrorTypeSuperseded, decodeProblem(t, rec).Type)
}

func TestReceiptHandler_FormLifecycle(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(http.MethodGet, "/api/v1/receipts/forms/form-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status FormStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "form-1", status.FormID)
	assert.False(t, status.Pending)

	rec = s.do(http.MethodDelete, "/api/v1/receipts/forms/form-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
