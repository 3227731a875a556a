package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/google/uuid"
)

const maxResponseBody = 10 << 20

// WebhookPusher posts records to the endpoint configured in the user
// document. The endpoint is read on every call so settings changes apply
// without a restart.
type WebhookPusher struct {
	settings func() domain.SyncSettings
	client   *http.Client
}

// NewWebhookPusher creates a WebhookPusher. settings is usually
// DocumentService.Snapshot().Sync.
func NewWebhookPusher(settings func() domain.SyncSettings, client *http.Client) *WebhookPusher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookPusher{settings: settings, client: client}
}

type pushRequest struct {
	Records []domain.Record `json:"records"`
}

type pushResponse struct {
	Acknowledged []uuid.UUID `json:"acknowledged"`
}

type fetchResponse struct {
	Records []domain.Record `json:"records"`
}

func (p *WebhookPusher) target() (domain.SyncSettings, error) {
	s := p.settings()
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if s.Endpoint == "" {
		return s, fmt.Errorf("%w: webhook endpoint not set", service.ErrSyncNotConfigured)
	}
	return s, nil
}

// Push implements service.RemotePusher. The remote answers with the ids it
// stored; records missing from the answer stay pending.
func (p *WebhookPusher) Push(ctx context.Context, records []domain.Record) ([]uuid.UUID, error) {
	s, err := p.target()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(pushRequest{Records: records})
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp pushResponse
	if err := p.do(req, s.Secret, &resp); err != nil {
		return nil, err
	}
	return resp.Acknowledged, nil
}

// Fetch implements service.RemoteFetcher
func (p *WebhookPusher) Fetch(ctx context.Context) ([]domain.Record, error) {
	s, err := p.target()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var resp fetchResponse
	if err := p.do(req, s.Secret, &resp); err != nil {
		return nil, err
	}
	for i, r := range resp.Records {
		if r.Transfer != nil {
			t := r.Transfer.Normalized()
			resp.Records[i].Transfer = &t
		}
	}
	return resp.Records, nil
}

func (p *WebhookPusher) do(req *http.Request, secret string, out any) error {
	req.Header.Set("Accept", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	return nil
}
