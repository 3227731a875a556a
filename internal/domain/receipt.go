package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ReceiptItem is one itemized line of a receipt
type ReceiptItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ReceiptExtraction is what the OCR collaborator reads off a receipt image
type ReceiptExtraction struct {
	Store             string             `json:"store"`
	Date              string             `json:"date"`
	Time              string             `json:"time,omitempty"`
	Total             decimal.Decimal    `json:"total"`
	Items             []ReceiptItem      `json:"items"`
	Confidence        float64            `json:"confidence"`
	SuggestedCategory string             `json:"suggestedCategory,omitempty"`
	SuggestedType     ClassificationType `json:"suggestedType,omitempty"`
}

// DraftExpense prefills the expense form. It is never stored; saving it
// goes through the regular expense append.
type DraftExpense struct {
	Date       string             `json:"date,omitempty"`
	Time       string             `json:"time,omitempty"`
	Amount     decimal.Decimal    `json:"amount"`
	Category   string             `json:"category,omitempty"`
	Type       ClassificationType `json:"type,omitempty"`
	Store      string             `json:"store"`
	Notes      string             `json:"notes,omitempty"`
	Source     Provenance         `json:"source"`
	Confidence float64            `json:"confidence"`
	ReceiptURL string             `json:"receiptUrl,omitempty"`
}

// NewDraftExpense maps an extraction onto a draft. Fields that fail
// validation are left blank for the user to fill in.
func NewDraftExpense(ext ReceiptExtraction, registry *CategoryRegistry) DraftExpense {
	draft := DraftExpense{
		Amount:     ClampAmount(ext.Total),
		Store:      strings.TrimSpace(ext.Store),
		Notes:      itemizedNotes(ext.Items),
		Source:     ProvenanceReceipt,
		Confidence: ext.Confidence,
	}
	draft.Store = truncateRunes(draft.Store, MaxDescriptionLength)
	if _, err := ParseDate(ext.Date); err == nil {
		draft.Date = strings.TrimSpace(ext.Date)
	}
	if ext.Time != "" && ValidClock(ext.Time) {
		draft.Time = ext.Time
	}
	if id := NormalizeCategoryID(ext.SuggestedCategory); id != "" && registry.Contains(id) {
		draft.Category = id
		draft.Type = registry.EffectiveType(id, ext.SuggestedType)
	} else if ext.SuggestedType.IsValid() {
		draft.Type = ext.SuggestedType
	}
	return draft
}

func itemizedNotes(items []ReceiptItem) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		line := name
		if it.Quantity.GreaterThan(decimal.NewFromInt(1)) {
			line = fmt.Sprintf("%s x%s", name, it.Quantity.String())
		}
		if !it.Price.IsZero() {
			line = fmt.Sprintf("%s: %s", line, it.Price.StringFixed(2))
		}
		lines = append(lines, line)
	}
	return truncateRunes(strings.Join(lines, "\n"), MaxNotesLength)
}

// truncateRunes keeps at most n characters of s, cutting on a rune boundary
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
