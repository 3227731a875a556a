package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// generator is the part of the genai client the extractor needs
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor reads receipts with a Gemini vision model. The API key
// belongs to the user document and is passed with every call.
type GeminiExtractor struct {
	model     string
	newClient func(ctx context.Context, apiKey string) (generator, error)

	mu        sync.Mutex
	clientKey string
	client    generator
}

// NewGeminiExtractor creates a GeminiExtractor for model
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiExtractor{model: model, newClient: newGenAIClient}
}

func newGenAIClient(ctx context.Context, apiKey string) (generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// Model returns the configured model name
func (e *GeminiExtractor) Model() string {
	return e.model
}

// clientFor reuses the client while the key stays the same
func (e *GeminiExtractor) clientFor(ctx context.Context, apiKey string) (generator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil && e.clientKey == apiKey {
		return e.client, nil
	}
	client, err := e.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	e.client, e.clientKey = client, apiKey
	return client, nil
}

// Extract implements service.ReceiptExtractor
func (e *GeminiExtractor) Extract(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error) {
	if strings.TrimSpace(apiKey) == "" {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: missing API key", domain.ErrExtractionFailed)
	}
	client, err := e.clientFor(ctx, apiKey)
	if err != nil {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: create genai client: %v", domain.ErrExtractionFailed, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt()},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	resp, err := client.GenerateContent(ctx, e.model, contents, config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ReceiptExtraction{}, ctxErr
		}
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: generate content: %v", domain.ErrExtractionFailed, err)
	}
	if resp == nil {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: empty response from model", domain.ErrExtractionFailed)
	}
	return ParseExtraction(resp.Text())
}

func extractionPrompt() string {
	ids := make([]string, 0, len(domain.BuiltinCategories()))
	for _, def := range domain.BuiltinCategories() {
		ids = append(ids, def.ID)
	}
	return "You read photos of shopping receipts.\n\n" +
		"Return one JSON object with these fields:\n" +
		"- \"store\": string, the merchant name\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\", empty if unreadable\n" +
		"- \"time\": string, \"HH:MM\" 24h, empty if absent\n" +
		"- \"total\": number, the amount paid\n" +
		"- \"items\": array of {\"name\": string, \"quantity\": number, \"price\": number}\n" +
		"- \"confidence\": number between 0 and 1\n" +
		"- \"suggestedCategory\": one of " + strings.Join(ids, ", ") + "\n" +
		"- \"suggestedType\": one of NEED, WANT, SAVE, DEBT\n\n" +
		"Amounts are plain numbers without currency symbols or thousands separators.\n" +
		"Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n"
}

type itemWire struct {
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

type extractionWire struct {
	Store             string          `json:"store"`
	Date              string          `json:"date"`
	Time              string          `json:"time"`
	Total             json.RawMessage `json:"total"`
	Items             []itemWire      `json:"items"`
	Confidence        json.RawMessage `json:"confidence"`
	SuggestedCategory string          `json:"suggestedCategory"`
	SuggestedType     string          `json:"suggestedType"`
}

var errNothingRead = errors.New("no receipt data in response")

// ParseExtraction decodes a model response into a ReceiptExtraction.
// Numbers may arrive as strings with separators; unreadable ones become 0.
func ParseExtraction(raw string) (domain.ReceiptExtraction, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: empty response from model", domain.ErrExtractionFailed)
	}

	var w extractionWire
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: unmarshal JSON: %v", domain.ErrExtractionFailed, err)
	}

	ext := domain.ReceiptExtraction{
		Store:             strings.TrimSpace(w.Store),
		Date:              strings.TrimSpace(w.Date),
		Time:              strings.TrimSpace(w.Time),
		Total:             number(w.Total),
		Confidence:        confidence(w.Confidence),
		SuggestedCategory: strings.TrimSpace(w.SuggestedCategory),
	}
	if t, ok := domain.ParseClassificationType(w.SuggestedType); ok {
		ext.SuggestedType = t
	}
	for _, it := range w.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := number(it.Quantity)
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		ext.Items = append(ext.Items, domain.ReceiptItem{Name: name, Quantity: qty, Price: number(it.Price)})
	}

	if ext.Store == "" && ext.Total.IsZero() && len(ext.Items) == 0 {
		return domain.ReceiptExtraction{}, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, errNothingRead)
	}
	return ext, nil
}

func number(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	s = strings.TrimLeft(s, "$€£¥ ")
	return domain.ParseBudgetAmount(s)
}

func confidence(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	c, err := strconv.ParseFloat(s, 64)
	if err != nil || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// cleanModelJSON strips Markdown fences and any text around the object
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
