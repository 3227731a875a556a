package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BalanceRefresher recomputes the cached balances after the ledger changes
type BalanceRefresher interface {
	RefreshBalances(ctx context.Context) (domain.AccountBalances, error)
}

// TransactionService is the append-only transaction store. Appended records
// keep their business fields forever; only the sync flag may change.
type TransactionService struct {
	transactionRepo domain.TransactionRepository
	docs            *DocumentService
	eventPublisher  websocket.EventPublisher
	balances        BalanceRefresher
	now             func() time.Time
	newID           func() (uuid.UUID, error)
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(transactionRepo domain.TransactionRepository, docs *DocumentService) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		docs:            docs,
		now:             time.Now,
		newID:           uuid.NewV7,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TransactionService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBalanceRefresher sets what recomputes balances after an append
func (s *TransactionService) SetBalanceRefresher(r BalanceRefresher) {
	s.balances = r
}

// SetClock replaces the time source for creation timestamps
func (s *TransactionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TransactionService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidTransaction, fmt.Sprintf(format, args...))
}

func validateWhen(date, clock string) (domain.Date, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.Date{}, invalid("%v", err)
	}
	if !domain.ValidClock(strings.TrimSpace(clock)) {
		return domain.Date{}, invalid("time must be HH:MM, got %q", clock)
	}
	return d, nil
}

func checkText(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return invalid("%s exceeds %d characters", field, max)
	}
	return nil
}

func checkCommon(amount decimal.Decimal, date domain.Date, clock string) error {
	if !amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if date.IsZero() {
		return invalid("date is required")
	}
	if !domain.ValidClock(clock) {
		return invalid("time must be HH:MM, got %q", clock)
	}
	return nil
}

// validateRecord checks a fully built record against the store invariants.
// Local appends and records merged from the remote store both pass here
// before anything is written.
func validateRecord(doc domain.Document, r domain.Record) error {
	if !r.Valid() {
		return invalid("record payload does not match kind %q", r.Kind)
	}
	if r.ID() == uuid.Nil {
		return invalid("record has no id")
	}

	switch r.Kind {
	case domain.KindExpense:
		e := r.Expense
		if err := checkCommon(e.Amount, e.Date, e.Time); err != nil {
			return err
		}
		if err := checkText("store", e.Store, domain.MaxDescriptionLength); err != nil {
			return err
		}
		if err := checkText("notes", e.Notes, domain.MaxNotesLength); err != nil {
			return err
		}
		if !doc.KnownAccount(e.Account()) {
			return invalid("unknown payment account %q", e.Account())
		}

	case domain.KindIncome:
		i := r.Income
		if err := checkCommon(i.Amount, i.Date, i.Time); err != nil {
			return err
		}
		if err := checkText("description", i.Description, domain.MaxDescriptionLength); err != nil {
			return err
		}
		if err := checkText("notes", i.Notes, domain.MaxNotesLength); err != nil {
			return err
		}
		if !i.Category.IsValid() {
			return invalid("unknown income category %q", i.Category)
		}
		if i.AccountID == domain.PaymentMethodCard {
			return invalid("income cannot be received on a card")
		}
		if !doc.KnownAccount(i.AccountID) {
			return invalid("unknown account %q", i.AccountID)
		}

	case domain.KindTransfer:
		t := r.Transfer.Normalized()
		if err := checkCommon(t.Amount, t.Date, t.Time); err != nil {
			return err
		}
		if err := checkText("description", t.Description, domain.MaxDescriptionLength); err != nil {
			return err
		}
		if err := checkText("notes", t.Notes, domain.MaxNotesLength); err != nil {
			return err
		}
		if t.FromAccountID == t.ToAccountID {
			return invalid("source and destination must differ")
		}
		for _, id := range []string{t.FromAccountID, t.ToAccountID} {
			if !doc.KnownAccount(id) {
				return invalid("unknown account %q", id)
			}
		}
	}
	return nil
}

// ExpenseInput holds the input for recording an expense
type ExpenseInput struct {
	Date          string
	Time          string
	Amount        decimal.Decimal
	Category      string
	Type          string // optional override of the category default
	PaymentMethod string // "cash", "card" or a bank account id
	Store         string
	Notes         string
	Source        domain.Provenance
}

// AppendExpense validates and stores an expense
func (s *TransactionService) AppendExpense(ctx context.Context, input ExpenseInput) (domain.Expense, error) {
	date, err := validateWhen(input.Date, input.Time)
	if err != nil {
		return domain.Expense{}, err
	}

	doc := s.docs.Snapshot()
	registry := doc.Registry()

	category := domain.NormalizeCategoryID(input.Category)
	if category == "" {
		category = domain.UncategorizedID
	}
	override, _ := domain.ParseClassificationType(input.Type)
	typ := registry.EffectiveType(category, override)

	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = domain.CashAccountID
	}
	accountID, err := resolvePaymentAccount(doc, method)
	if err != nil {
		return domain.Expense{}, err
	}

	source := input.Source
	if source != domain.ProvenanceReceipt {
		source = domain.ProvenanceManual
	}

	id, err := s.newID()
	if err != nil {
		return domain.Expense{}, fmt.Errorf("generate id: %w", err)
	}
	expense := domain.Expense{
		ID:            id,
		CreatedAt:     s.now().UTC(),
		Date:          date,
		Time:          strings.TrimSpace(input.Time),
		Amount:        input.Amount,
		Category:      category,
		Type:          typ,
		PaymentMethod: method,
		AccountID:     accountID,
		Store:         strings.TrimSpace(input.Store),
		Notes:         strings.TrimSpace(input.Notes),
		Source:        source,
		Synced:        false,
	}
	if err := s.append(ctx, doc, domain.ExpenseRecord(expense)); err != nil {
		return domain.Expense{}, err
	}
	return expense, nil
}

// resolvePaymentAccount maps a payment method onto the account it debits.
// Card payments go to the default bank account.
func resolvePaymentAccount(doc domain.Document, method string) (string, error) {
	switch method {
	case domain.CashAccountID:
		return domain.CashAccountID, nil
	case domain.PaymentMethodCard:
		account, ok := doc.DefaultAccount()
		if !ok {
			return "", invalid("card payment needs a default bank account")
		}
		return account.ID, nil
	}
	if _, ok := doc.Account(method); !ok {
		return "", invalid("unknown payment account %q", method)
	}
	return method, nil
}

// IncomeInput holds the input for recording income
type IncomeInput struct {
	Date        string
	Time        string
	Amount      decimal.Decimal
	Category    string
	AccountID   string
	Description string
	Notes       string
}

// AppendIncome validates and stores an income. The destination is cash or
// a bank account, never a card.
func (s *TransactionService) AppendIncome(ctx context.Context, input IncomeInput) (domain.Income, error) {
	date, err := validateWhen(input.Date, input.Time)
	if err != nil {
		return domain.Income{}, err
	}

	category := domain.IncomeCategory(strings.ToUpper(strings.TrimSpace(input.Category)))
	if category == "" {
		category = domain.IncomeOther
	}
	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		accountID = domain.CashAccountID
	}

	id, err := s.newID()
	if err != nil {
		return domain.Income{}, fmt.Errorf("generate id: %w", err)
	}
	income := domain.Income{
		ID:          id,
		CreatedAt:   s.now().UTC(),
		Date:        date,
		Time:        strings.TrimSpace(input.Time),
		Amount:      input.Amount,
		Category:    category,
		AccountID:   accountID,
		Description: strings.TrimSpace(input.Description),
		Notes:       strings.TrimSpace(input.Notes),
		Synced:      false,
	}
	if err := s.append(ctx, s.docs.Snapshot(), domain.IncomeRecord(income)); err != nil {
		return domain.Income{}, err
	}
	return income, nil
}

// TransferInput holds the input for moving money between accounts
type TransferInput struct {
	Date          string
	Time          string
	Amount        decimal.Decimal
	FromAccountID string
	ToAccountID   string
	Description   string
	Notes         string
}

// AppendTransfer validates and stores a transfer. Both ends must be cash or
// a known bank account and must differ.
func (s *TransactionService) AppendTransfer(ctx context.Context, input TransferInput) (domain.Transfer, error) {
	date, err := validateWhen(input.Date, input.Time)
	if err != nil {
		return domain.Transfer{}, err
	}

	id, err := s.newID()
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("generate id: %w", err)
	}
	transfer := domain.Transfer{
		ID:            id,
		CreatedAt:     s.now().UTC(),
		Date:          date,
		Time:          strings.TrimSpace(input.Time),
		Amount:        input.Amount,
		FromAccountID: strings.TrimSpace(input.FromAccountID),
		ToAccountID:   strings.TrimSpace(input.ToAccountID),
		Description:   strings.TrimSpace(input.Description),
		Notes:         strings.TrimSpace(input.Notes),
		Synced:        false,
	}
	if err := s.append(ctx, s.docs.Snapshot(), domain.TransferRecord(transfer)); err != nil {
		return domain.Transfer{}, err
	}
	return transfer, nil
}

func (s *TransactionService) append(ctx context.Context, doc domain.Document, r domain.Record) error {
	if err := validateRecord(doc, r); err != nil {
		return err
	}
	if err := s.transactionRepo.Append(ctx, r); err != nil {
		return fmt.Errorf("append %s: %w", r.Kind, err)
	}
	s.publishEvent(websocket.TransactionCreated(r))
	s.refreshBalances(ctx)
	return nil
}

// refreshBalances updates the cache; a failure leaves it stale but the
// transaction is already stored, so it is only logged
func (s *TransactionService) refreshBalances(ctx context.Context) {
	if s.balances == nil {
		return
	}
	if _, err := s.balances.RefreshBalances(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh balances")
	}
}

// GetTransaction returns one stored record
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	return s.transactionRepo.Get(ctx, id)
}

// ListTransactions returns stored records in chronological order
func (s *TransactionService) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Record, error) {
	records, err := s.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	SortChronologically(records)
	return records, nil
}

// Unsynced returns the records not yet confirmed by the remote store
func (s *TransactionService) Unsynced(ctx context.Context) ([]domain.Record, error) {
	return s.ListTransactions(ctx, domain.TransactionFilter{UnsyncedOnly: true})
}

// MarkSynced flips the sync flag of confirmed records. This is the only
// change a stored record ever receives.
func (s *TransactionService) MarkSynced(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.transactionRepo.MarkSynced(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark synced: %w", err)
	}
	if n > 0 {
		s.publishEvent(websocket.TransactionSynced(map[string]any{"ids": ids, "count": n}))
	}
	return n, nil
}

// MergeResult counts what happened to each remote record
type MergeResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

// MergeRemote applies records read back from the remote store. The remote
// copy wins over a local record that is already synced; a local record
// still waiting for sync is never overwritten. Unknown records are stored
// as synced. Records failing the append checks are counted as invalid and
// never stored.
func (s *TransactionService) MergeRemote(ctx context.Context, records []domain.Record) (MergeResult, error) {
	var result MergeResult
	doc := s.docs.Snapshot()
	for _, r := range records {
		if err := validateRecord(doc, r); err != nil {
			log.Debug().Err(err).Str("kind", string(r.Kind)).Msg("Skipping invalid remote record")
			result.Invalid++
			continue
		}
		remote := r.WithSynced(true)

		local, err := s.transactionRepo.Get(ctx, r.ID())
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			if err := s.transactionRepo.Append(ctx, remote); err != nil {
				return result, fmt.Errorf("insert remote %s: %w", r.ID(), err)
			}
			result.Inserted++
		case err != nil:
			return result, fmt.Errorf("get %s: %w", r.ID(), err)
		case !local.Synced():
			result.Skipped++
		default:
			if err := s.transactionRepo.Replace(ctx, remote); err != nil {
				return result, fmt.Errorf("replace %s: %w", r.ID(), err)
			}
			result.Updated++
		}
	}

	if result.Inserted+result.Updated > 0 {
		s.publishEvent(websocket.TransactionMerged(result))
		s.refreshBalances(ctx)
	}
	return result, nil
}
