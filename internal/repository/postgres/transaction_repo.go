package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements domain.TransactionRepository. The full
// record lives in payload; the other columns exist for filtering and ordering.
type TransactionRepository struct {
	db querier
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

type transactionRow struct {
	id        string
	kind      string
	date      pgtype.Date
	clock     pgtype.Text
	amount    pgtype.Numeric
	synced    bool
	payload   []byte
	createdAt time.Time
}

// Append inserts a new record
func (r *TransactionRepository) Append(ctx context.Context, rec domain.Record) error {
	row, err := toTransactionRow(rec)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO transactions (id, kind, txn_date, txn_time, amount, synced, payload, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
		row.id, row.kind, row.date, row.clock, row.amount, row.synced, row.payload, row.createdAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.ErrTransactionExists
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get retrieves a record by id
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	var (
		kind    string
		synced  bool
		payload []byte
	)
	err := r.db.QueryRow(ctx, `SELECT kind, synced, payload FROM transactions WHERE id = $1::uuid`, id.String()).
		Scan(&kind, &synced, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Record{}, domain.ErrTransactionNotFound
		}
		return domain.Record{}, fmt.Errorf("get transaction: %w", err)
	}
	return fromTransactionRow(kind, synced, payload)
}

// Replace overwrites a stored record with a newer copy of itself
func (r *TransactionRepository) Replace(ctx context.Context, rec domain.Record) error {
	row, err := toTransactionRow(rec)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET kind = $2, txn_date = $3, txn_time = $4, amount = $5, synced = $6, payload = $7, created_at = $8
		WHERE id = $1::uuid`,
		row.id, row.kind, row.date, row.clock, row.amount, row.synced, row.payload, row.createdAt)
	if err != nil {
		return fmt.Errorf("replace transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// List returns matching records in append order
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Record, error) {
	query, args := listQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var (
			kind    string
			synced  bool
			payload []byte
		)
		if err := rows.Scan(&kind, &synced, &payload); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec, err := fromTransactionRow(kind, synced, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// MarkSynced flips synced on the given ids and reports how many changed
func (r *TransactionRepository) MarkSynced(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	tag, err := r.db.Exec(ctx, `UPDATE transactions SET synced = TRUE WHERE id = ANY($1::uuid[]) AND NOT synced`, strs)
	if err != nil {
		return 0, fmt.Errorf("mark synced: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func listQuery(filter domain.TransactionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if !filter.From.IsZero() {
		add("txn_date >= $%d", pgtype.Date{Time: filter.From.Time, Valid: true})
	}
	if !filter.To.IsZero() {
		add("txn_date <= $%d", pgtype.Date{Time: filter.To.Time, Valid: true})
	}
	if filter.UnsyncedOnly {
		where = append(where, "NOT synced")
	}

	query := "SELECT kind, synced, payload FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY seq", args
}

func toTransactionRow(rec domain.Record) (transactionRow, error) {
	if !rec.Valid() {
		return transactionRow{}, fmt.Errorf("%w: record has no payload", domain.ErrInvalidTransaction)
	}
	payload, err := json.Marshal(rec.Payload())
	if err != nil {
		return transactionRow{}, fmt.Errorf("encode transaction: %w", err)
	}
	amount, err := decimalToPgNumeric(recordAmount(rec))
	if err != nil {
		return transactionRow{}, fmt.Errorf("invalid amount: %w", err)
	}
	return transactionRow{
		id:        rec.ID().String(),
		kind:      string(rec.Kind),
		date:      pgtype.Date{Time: rec.Date().Time, Valid: true},
		clock:     optionalText(rec.Clock()),
		amount:    amount,
		synced:    rec.Synced(),
		payload:   payload,
		createdAt: rec.CreatedAt(),
	}, nil
}

// fromTransactionRow decodes payload; the synced column is authoritative
func fromTransactionRow(kind string, synced bool, payload []byte) (domain.Record, error) {
	rec, err := domain.DecodeRecord(domain.TransactionKind(kind), payload)
	if err != nil {
		return domain.Record{}, err
	}
	return rec.WithSynced(synced), nil
}

func recordAmount(rec domain.Record) decimal.Decimal {
	switch rec.Kind {
	case domain.KindExpense:
		return rec.Expense.Amount
	case domain.KindIncome:
		return rec.Income.Amount
	case domain.KindTransfer:
		return rec.Transfer.Amount
	}
	return decimal.Zero
}
