package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MaxReceiptSize     = 10 * 1024 * 1024 // 10MB
	MinReceiptWidth    = 50
	MinReceiptHeight   = 50
	MaxReceiptWidth    = 1600
	ReceiptJPEGQuality = 85
)

var (
	ErrReceiptEmpty        = errors.New("receipt image is empty")
	ErrReceiptTooLarge     = errors.New("file too large. Maximum size is 10MB")
	ErrReceiptFormat       = errors.New("invalid format. Supported: JPEG, PNG, WebP, HEIC")
	ErrReceiptTooSmall     = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidReceiptImage = errors.New("invalid image data")
)

// ReceiptFormats maps the accepted MIME types to their file extensions
var ReceiptFormats = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// NormalizeReceiptMIME strips parameters and folds aliases such as image/jpg
func NormalizeReceiptMIME(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	if mt == "image/jpg" || mt == "image/pjpeg" {
		mt = "image/jpeg"
	}
	return mt
}

// ReceiptExtractor reads a receipt image. Failures wrap domain.ErrExtractionFailed.
type ReceiptExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error)
}

// ReceiptArchive stores the uploaded receipt images
type ReceiptArchive interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error)
}

// ReceiptResult is a successful extraction mapped onto a draft expense
type ReceiptResult struct {
	Draft      domain.DraftExpense      `json:"draft"`
	Extraction domain.ReceiptExtraction `json:"extraction"`
}

// ReceiptService turns receipt photos into draft expenses.
//
// Every Extract call takes a ticket for its form. Only the newest ticket of
// a form may deliver a draft, and Cancel or Touch revoke it, so a slow
// extraction can never overwrite what the user typed meanwhile.
type ReceiptService struct {
	docs      *DocumentService
	extractor ReceiptExtractor
	archive   ReceiptArchive
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	ticket uint64
	latest map[string]uint64
}

// NewReceiptService creates a new ReceiptService. archive may be nil.
func NewReceiptService(docs *DocumentService, extractor ReceiptExtractor, archive ReceiptArchive, logger zerolog.Logger) *ReceiptService {
	return &ReceiptService{
		docs:      docs,
		extractor: extractor,
		archive:   archive,
		logger:    logger.With().Str("component", "receipt").Logger(),
		now:       time.Now,
		latest:    make(map[string]uint64),
	}
}

// ArchiveEnabled indicates whether uploaded images are kept
func (s *ReceiptService) ArchiveEnabled() bool {
	return s.archive != nil
}

// Extract validates the image, asks the extractor to read it and maps the
// result onto a draft. Nothing is stored.
func (s *ReceiptService) Extract(ctx context.Context, formID string, image []byte, contentType string) (ReceiptResult, error) {
	mimeType, err := s.validate(image, contentType)
	if err != nil {
		return ReceiptResult{}, err
	}

	apiKey := s.docs.Snapshot().GeminiKey
	if apiKey == "" {
		return ReceiptResult{}, fmt.Errorf("%w: no Gemini API key configured", domain.ErrExtractionFailed)
	}

	ticket := s.begin(formID)
	defer s.finish(formID, ticket)

	prepared, preparedType, err := s.prepare(image, mimeType)
	if err != nil {
		return ReceiptResult{}, err
	}

	receiptURL := s.store(ctx, prepared, preparedType)

	ext, err := s.extractor.Extract(ctx, prepared, preparedType, apiKey)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ReceiptResult{}, ctxErr
	}
	if !s.isLatest(formID, ticket) {
		return ReceiptResult{}, domain.ErrExtractionSuperseded
	}
	if err != nil {
		if !errors.Is(err, domain.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
		s.logger.Warn().Err(err).Str("form_id", formID).Msg("Receipt extraction failed")
		return ReceiptResult{}, err
	}

	draft := domain.NewDraftExpense(ext, s.docs.Registry())
	draft.ReceiptURL = receiptURL
	return ReceiptResult{Draft: draft, Extraction: ext}, nil
}

// Cancel revokes the outstanding extraction of a closed form
func (s *ReceiptService) Cancel(formID string) {
	s.revoke(formID)
}

// Touch revokes the outstanding extraction after a manual edit of the form
func (s *ReceiptService) Touch(formID string) {
	s.revoke(formID)
}

// Pending reports whether formID has an extraction that may still deliver
func (s *ReceiptService) Pending(formID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.latest[formID]
	return ok
}

func (s *ReceiptService) begin(formID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	s.latest[formID] = s.ticket
	return s.ticket
}

func (s *ReceiptService) isLatest(formID string, ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.latest[formID]
	return ok && current == ticket
}

func (s *ReceiptService) finish(formID string, ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[formID] == ticket {
		delete(s.latest, formID)
	}
}

func (s *ReceiptService) revoke(formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, formID)
}

func (s *ReceiptService) validate(image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", ErrReceiptEmpty
	}
	if len(image) > MaxReceiptSize {
		return "", ErrReceiptTooLarge
	}
	mimeType := NormalizeReceiptMIME(contentType)
	if _, ok := ReceiptFormats[mimeType]; !ok {
		return "", ErrReceiptFormat
	}
	return mimeType, nil
}

// prepare downsizes wide JPEG and PNG photos before upload. Other formats
// are passed through as is.
func (s *ReceiptService) prepare(data []byte, mimeType string) ([]byte, string, error) {
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		return data, mimeType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", ErrInvalidReceiptImage
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, "", ErrReceiptTooSmall
	}
	if bounds.Dx() <= MaxReceiptWidth {
		return data, mimeType, nil
	}

	resized := imaging.Resize(img, MaxReceiptWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(ReceiptJPEGQuality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	s.logger.Debug().
		Int("width", bounds.Dx()).
		Int("bytes_before", len(data)).
		Int("bytes_after", buf.Len()).
		Msg("Downscaled receipt image")
	return buf.Bytes(), "image/jpeg", nil
}

// store archives the image and returns its URL. Archiving is best effort;
// a failure only costs the link.
func (s *ReceiptService) store(ctx context.Context, data []byte, mimeType string) string {
	if s.archive == nil {
		return ""
	}
	now := s.now().UTC()
	key := fmt.Sprintf("receipts/%04d/%02d/%s%s", now.Year(), int(now.Month()), uuid.New().String(), ReceiptFormats[mimeType])
	url, err := s.archive.Upload(ctx, key, bytes.NewReader(data), mimeType, int64(len(data)))
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to archive receipt image")
		return ""
	}
	return url
}
