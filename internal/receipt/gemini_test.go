package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	text     string
	err      error
	model    string
	contents []*genai.Content
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func newTestExtractor(gen *fakeGenerator) (*GeminiExtractor, *int) {
	created := 0
	e := NewGeminiExtractor("")
	e.newClient = func(ctx context.Context, apiKey string) (generator, error) {
		created++
		return gen, nil
	}
	return e, &created
}

const sampleResponse = `{
	"store": "Fresh Market",
	"date": "2024-03-14",
	"time": "18:42",
	"total": 45250,
	"items": [{"name": "Milk", "quantity": 2, "price": 12000}, {"name": "Bread", "price": "21,250"}],
	"confidence": 0.92,
	"suggestedCategory": "GROCERIES",
	"suggestedType": "need"
}`

func TestParseExtraction(t *testing.T) {
	ext, err := ParseExtraction(sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, "Fresh Market", ext.Store)
	assert.Equal(t, "2024-03-14", ext.Date)
	assert.Equal(t, "18:42", ext.Time)
	assert.Equal(t, "45250", ext.Total.String())
	require.Len(t, ext.Items, 2)
	assert.Equal(t, "2", ext.Items[0].Quantity.String())
	assert.Equal(t, "1", ext.Items[1].Quantity.String())
	assert.Equal(t, "21250", ext.Items[1].Price.String())
	assert.InDelta(t, 0.92, ext.Confidence, 1e-9)
	assert.Equal(t, "GROCERIES", ext.SuggestedCategory)
	assert.Equal(t, domain.TypeNeed, ext.SuggestedType)
}

func TestParseExtraction_Lenient(t *testing.T) {
	raw := "```json\n{\"store\": \"Kiosk\", \"total\": \"$12.50\", \"confidence\": 7, \"suggestedType\": \"luxury\"}\n```"

	ext, err := ParseExtraction(raw)
	require.NoError(t, err)

	assert.Equal(t, "Kiosk", ext.Store)
	assert.Equal(t, "12.5", ext.Total.String())
	assert.InDelta(t, 1.0, ext.Confidence, 1e-9)
	assert.Empty(t, ext.SuggestedType)
	assert.Empty(t, ext.Items)
}

func TestParseExtraction_Failures(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":      "   ",
		"not json":   "I could not read this receipt",
		"nothing":    `{"store": "", "total": 0, "items": []}`,
		"only fence": "```",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseExtraction(raw)
			assert.ErrorIs(t, err, domain.ErrExtractionFailed)
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding text", in: "Here you go: {\"a\":1} hope that helps", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestGeminiExtractor_Extract(t *testing.T) {
	gen := &fakeGenerator{text: sampleResponse}
	e, created := newTestExtractor(gen)

	ext, err := e.Extract(context.Background(), []byte("jpeg-bytes"), "image/jpeg", "key-1")
	require.NoError(t, err)

	assert.Equal(t, "Fresh Market", ext.Store)
	assert.Equal(t, DefaultModel, gen.model)
	require.Len(t, gen.contents, 1)
	require.Len(t, gen.contents[0].Parts, 2)
	assert.Contains(t, gen.contents[0].Parts[0].Text, "GROCERIES")
	assert.Equal(t, "image/jpeg", gen.contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("jpeg-bytes"), gen.contents[0].Parts[1].InlineData.Data)

	_, err = e.Extract(context.Background(), []byte("x"), "image/jpeg", "key-1")
	require.NoError(t, err)
	assert.Equal(t, 1, *created, "client is reused for the same key")

	_, err = e.Extract(context.Background(), []byte("x"), "image/jpeg", "key-2")
	require.NoError(t, err)
	assert.Equal(t, 2, *created)
}

func TestGeminiExtractor_Errors(t *testing.T) {
	e, created := newTestExtractor(&fakeGenerator{err: errors.New("quota exceeded")})

	_, err := e.Extract(context.Background(), []byte("x"), "image/png", "")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Equal(t, 0, *created)

	_, err = e.Extract(context.Background(), []byte("x"), "image/png", "key")
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiExtractor_CancelledContext(t *testing.T) {
	e, _ := newTestExtractor(&fakeGenerator{err: errors.New("request aborted")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, []byte("x"), "image/png", "key")

	assert.ErrorIs(t, err, context.Canceled)
}
