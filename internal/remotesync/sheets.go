package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab transactions are written to
const DefaultSheetName = "Transactions"

// sheetHeader is the first row of the transactions tab. The last column
// holds the full record so it can be read back without loss.
var sheetHeader = []any{"ID", "Kind", "Date", "Time", "Amount", "Account", "Counterparty", "Category", "Type", "Description", "CreatedAt", "Record"}

const (
	colID     = 0
	colKind   = 1
	colRecord = 11
)

// valuesAPI is the slice of the Sheets values API the pusher uses
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	Append(ctx context.Context, rng string, rows [][]any) error
}

// SheetsConfig holds the Google Sheets sync settings
type SheetsConfig struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
}

// SheetsPusher keeps one row per transaction in a Google spreadsheet,
// keyed by the transaction id in column A
type SheetsPusher struct {
	values valuesAPI
	sheet  string
	mu     sync.Mutex
}

// NewSheetsPusher connects to the Sheets API with service account credentials
func NewSheetsPusher(ctx context.Context, cfg SheetsConfig) (*SheetsPusher, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.ServiceAccountJSON) == "" {
		return nil, errors.New("missing service account credentials")
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	log.Info().Str("spreadsheet_id", cfg.SpreadsheetID).Msg("Google Sheets sync enabled")
	return newSheetsPusher(&googleValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName), nil
}

func newSheetsPusher(values valuesAPI, sheet string) *SheetsPusher {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	return &SheetsPusher{values: values, sheet: sheet}
}

// Push implements service.RemotePusher. Rows of known ids are rewritten in
// place, new ids are appended. Every record of a successful call is acked.
func (p *SheetsPusher) Push(ctx context.Context, records []domain.Record) ([]uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index, rowCount, err := p.index(ctx)
	if err != nil {
		return nil, err
	}
	if rowCount == 0 {
		if err := p.values.Update(ctx, fmt.Sprintf("%s!A1:L1", p.sheet), [][]any{sheetHeader}); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	acked := make([]uuid.UUID, 0, len(records))
	var fresh [][]any
	var freshIDs []uuid.UUID
	for _, r := range records {
		row, err := recordRow(r)
		if err != nil {
			log.Warn().Err(err).Str("id", r.ID().String()).Msg("Skipping unencodable record")
			continue
		}
		if n, ok := index[r.ID()]; ok {
			rng := fmt.Sprintf("%s!A%d:L%d", p.sheet, n, n)
			if err := p.values.Update(ctx, rng, [][]any{row}); err != nil {
				return acked, fmt.Errorf("update row %d: %w", n, err)
			}
			acked = append(acked, r.ID())
			continue
		}
		fresh = append(fresh, row)
		freshIDs = append(freshIDs, r.ID())
	}

	if len(fresh) > 0 {
		if err := p.values.Append(ctx, fmt.Sprintf("%s!A:L", p.sheet), fresh); err != nil {
			return acked, fmt.Errorf("append rows: %w", err)
		}
		acked = append(acked, freshIDs...)
	}
	return acked, nil
}

// Fetch implements service.RemoteFetcher
func (p *SheetsPusher) Fetch(ctx context.Context) ([]domain.Record, error) {
	rows, err := p.values.Get(ctx, fmt.Sprintf("%s!A2:L", p.sheet))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.sheet, err)
	}
	records := make([]domain.Record, 0, len(rows))
	for i, row := range rows {
		r, err := rowRecord(row)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Msg("Skipping unreadable sheet row")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// index maps ids to their 1-based sheet row
func (p *SheetsPusher) index(ctx context.Context) (map[uuid.UUID]int, int, error) {
	rows, err := p.values.Get(ctx, fmt.Sprintf("%s!A:A", p.sheet))
	if err != nil {
		return nil, 0, fmt.Errorf("read ids of %s: %w", p.sheet, err)
	}
	index := make(map[uuid.UUID]int, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(row[colID]))); err == nil {
			index[id] = i + 1
		}
	}
	return index, len(rows), nil
}

func recordRow(r domain.Record) ([]any, error) {
	payload, err := json.Marshal(r.Payload())
	if err != nil {
		return nil, err
	}
	row := []any{r.ID().String(), string(r.Kind), r.Date().String(), r.Clock(), "", "", "", "", "", "", r.CreatedAt().UTC().Format("2006-01-02T15:04:05Z07:00"), string(payload)}
	switch r.Kind {
	case domain.KindExpense:
		e := r.Expense
		row[4], row[5], row[7], row[8], row[9] = e.Amount.String(), e.Account(), e.Category, string(e.Type), e.Store
	case domain.KindIncome:
		i := r.Income
		row[4], row[5], row[7], row[9] = i.Amount.String(), i.AccountID, string(i.Category), i.Description
	case domain.KindTransfer:
		t := r.Transfer.Normalized()
		row[4], row[5], row[6], row[9] = t.Amount.String(), t.FromAccountID, t.ToAccountID, t.Description
	}
	return row, nil
}

func rowRecord(row []any) (domain.Record, error) {
	if len(row) <= colRecord {
		return domain.Record{}, fmt.Errorf("row has %d columns", len(row))
	}
	kind := domain.TransactionKind(strings.TrimSpace(fmt.Sprint(row[colKind])))
	return domain.DecodeRecord(kind, []byte(fmt.Sprint(row[colRecord])))
}

// googleValues adapts the generated Sheets client to valuesAPI
type googleValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (g *googleValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
