package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// RunningBalance computes the balance of accountID at the end of asOf.
//
// The account starts from its anchor; without one it starts at 0 and every
// transaction up to asOf counts. Transactions dated on or before the anchor
// date are part of the anchored balance already. Expenses charged to the
// account subtract, incomes into it add, transfers subtract from the source
// and add to the destination. The result does not depend on record order.
func RunningBalance(sb domain.StartingBalance, records []domain.Record, accountID string, asOf domain.Date) decimal.Decimal {
	anchor, anchored := sb.Anchor(accountID)
	balance := decimal.Zero
	if anchored {
		balance = anchor.Balance
	}
	for _, r := range records {
		if !inWindow(r.Date(), anchor, anchored, asOf) {
			continue
		}
		balance = balance.Add(signedAmount(r, accountID))
	}
	return balance
}

func inWindow(d domain.Date, anchor domain.BalanceAnchor, anchored bool, asOf domain.Date) bool {
	if d.IsZero() || d.After(asOf) {
		return false
	}
	if anchored && !anchor.AsOfDate.IsZero() && !d.After(anchor.AsOfDate) {
		return false
	}
	return true
}

// signedAmount is the effect of r on accountID, zero when r does not touch it
func signedAmount(r domain.Record, accountID string) decimal.Decimal {
	switch r.Kind {
	case domain.KindExpense:
		if r.Expense.Account() == accountID {
			return r.Expense.Amount.Neg()
		}
	case domain.KindIncome:
		if r.Income.AccountID == accountID {
			return r.Income.Amount
		}
	case domain.KindTransfer:
		t := r.Transfer.Normalized()
		if t.FromAccountID == t.ToAccountID {
			return decimal.Zero
		}
		if t.FromAccountID == accountID {
			return t.Amount.Neg()
		}
		if t.ToAccountID == accountID {
			return t.Amount
		}
	}
	return decimal.Zero
}

// SortChronologically orders records by date, time of day, then creation,
// with the id as a final tie-break
func SortChronologically(records []domain.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if c := a.Date().Compare(b.Date()); c != 0 {
			return c < 0
		}
		if a.Clock() != b.Clock() {
			return a.Clock() < b.Clock()
		}
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		return a.ID().String() < b.ID().String()
	})
}

// BuildEntries turns the records affecting accountID into statement lines,
// each carrying the balance after it
func BuildEntries(sb domain.StartingBalance, records []domain.Record, accountID string, asOf domain.Date) []domain.LedgerEntry {
	anchor, anchored := sb.Anchor(accountID)
	balance := decimal.Zero
	if anchored {
		balance = anchor.Balance
	}

	affecting := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if !inWindow(r.Date(), anchor, anchored, asOf) {
			continue
		}
		if touches(r, accountID) {
			affecting = append(affecting, r)
		}
	}
	SortChronologically(affecting)

	entries := make([]domain.LedgerEntry, 0, len(affecting))
	for _, r := range affecting {
		amount := signedAmount(r, accountID)
		balance = balance.Add(amount)
		entries = append(entries, domain.LedgerEntry{
			Kind:        r.Kind,
			ID:          r.ID(),
			Date:        r.Date(),
			Time:        r.Clock(),
			CreatedAt:   r.CreatedAt(),
			Description: describe(r),
			Amount:      amount,
			Balance:     balance,
		})
	}
	return entries
}

func touches(r domain.Record, accountID string) bool {
	switch r.Kind {
	case domain.KindExpense:
		return r.Expense.Account() == accountID
	case domain.KindIncome:
		return r.Income.AccountID == accountID
	case domain.KindTransfer:
		t := r.Transfer.Normalized()
		return t.FromAccountID != t.ToAccountID && (t.FromAccountID == accountID || t.ToAccountID == accountID)
	}
	return false
}

func describe(r domain.Record) string {
	switch r.Kind {
	case domain.KindExpense:
		if r.Expense.Store != "" {
			return r.Expense.Store
		}
		return r.Expense.Category
	case domain.KindIncome:
		if r.Income.Description != "" {
			return r.Income.Description
		}
		return string(r.Income.Category)
	case domain.KindTransfer:
		if r.Transfer.Description != "" {
			return r.Transfer.Description
		}
		t := r.Transfer.Normalized()
		return fmt.Sprintf("%s → %s", t.FromAccountID, t.ToAccountID)
	}
	return ""
}

// LedgerService computes account balances over the stored transactions
type LedgerService struct {
	docs            *DocumentService
	transactionRepo domain.TransactionRepository
	eventPublisher  websocket.EventPublisher
	now             func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(docs *DocumentService, transactionRepo domain.TransactionRepository) *LedgerService {
	return &LedgerService{docs: docs, transactionRepo: transactionRepo, now: time.Now}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LedgerService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source used for "today"
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *LedgerService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Today is the default query bound
func (s *LedgerService) Today() domain.Date {
	return domain.DateOf(s.now())
}

func (s *LedgerService) records(ctx context.Context, asOf domain.Date) ([]domain.Record, error) {
	records, err := s.transactionRepo.List(ctx, domain.TransactionFilter{To: asOf})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

func (s *LedgerService) knownAccount(doc domain.Document, accountID string) error {
	if !doc.KnownAccount(accountID) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	return nil
}

// RunningBalance returns the balance of accountID at the end of asOf
func (s *LedgerService) RunningBalance(ctx context.Context, accountID string, asOf domain.Date) (decimal.Decimal, error) {
	doc := s.docs.Snapshot()
	if err := s.knownAccount(doc, accountID); err != nil {
		return decimal.Zero, err
	}
	records, err := s.records(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return RunningBalance(doc.Balances.StartingBalance, records, accountID, asOf), nil
}

// Statement is the ledger of one account up to a date
type Statement struct {
	AccountID      string                `json:"accountId"`
	AsOf           domain.Date           `json:"asOf"`
	Anchor         *domain.BalanceAnchor `json:"anchor,omitempty"`
	OpeningBalance decimal.Decimal       `json:"openingBalance"`
	ClosingBalance decimal.Decimal       `json:"closingBalance"`
	Entries        []domain.LedgerEntry  `json:"entries"`
}

// Entries returns the statement of accountID up to asOf
func (s *LedgerService) Entries(ctx context.Context, accountID string, asOf domain.Date) (Statement, error) {
	doc := s.docs.Snapshot()
	if err := s.knownAccount(doc, accountID); err != nil {
		return Statement{}, err
	}
	records, err := s.records(ctx, asOf)
	if err != nil {
		return Statement{}, err
	}

	sb := doc.Balances.StartingBalance
	st := Statement{
		AccountID: accountID,
		AsOf:      asOf,
		Entries:   BuildEntries(sb, records, accountID, asOf),
	}
	if anchor, ok := sb.Anchor(accountID); ok {
		st.Anchor = &anchor
		st.OpeningBalance = anchor.Balance
	}
	st.ClosingBalance = st.OpeningBalance
	if n := len(st.Entries); n > 0 {
		st.ClosingBalance = st.Entries[n-1].Balance
	}
	return st, nil
}

// AccountBalances derives the balance cache for cash and every bank account
func (s *LedgerService) AccountBalances(ctx context.Context, asOf domain.Date) (domain.AccountBalances, error) {
	doc := s.docs.Snapshot()
	records, err := s.records(ctx, asOf)
	if err != nil {
		return domain.AccountBalances{}, err
	}
	return deriveBalances(doc, records, asOf, s.now()), nil
}

func deriveBalances(doc domain.Document, records []domain.Record, asOf domain.Date, now time.Time) domain.AccountBalances {
	sb := doc.Balances.StartingBalance
	out := domain.AccountBalances{
		Cash:            RunningBalance(sb, records, domain.CashAccountID, asOf),
		Accounts:        make(map[string]decimal.Decimal, len(doc.BankAccounts)),
		LastUpdated:     now.UTC(),
		StartingBalance: sb.Clone(),
	}
	for _, a := range doc.BankAccounts {
		out.Accounts[a.ID] = RunningBalance(sb, records, a.ID, asOf)
	}
	return out
}

// TotalBalance sums every account at asOf. Transfers cancel out.
func (s *LedgerService) TotalBalance(ctx context.Context, asOf domain.Date) (decimal.Decimal, error) {
	balances, err := s.AccountBalances(ctx, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	total := balances.Cash
	for _, bal := range balances.Accounts {
		total = total.Add(bal)
	}
	return total, nil
}

// RefreshBalances recomputes the cache as of today and stores it in the document
func (s *LedgerService) RefreshBalances(ctx context.Context) (domain.AccountBalances, error) {
	asOf := s.Today()
	records, err := s.records(ctx, asOf)
	if err != nil {
		return domain.AccountBalances{}, err
	}

	var balances domain.AccountBalances
	_, err = s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		balances = deriveBalances(doc, records, asOf, s.now())
		doc.Balances = balances.Clone()
		return doc, nil
	})
	if err != nil {
		return domain.AccountBalances{}, err
	}

	s.publishEvent(websocket.BalancesUpdated(balances))
	return balances, nil
}

// SetStartingBalance anchors accountID at balance as of asOf. The anchor is
// always written in the per-account format.
func (s *LedgerService) SetStartingBalance(ctx context.Context, accountID string, balance decimal.Decimal, asOf domain.Date) (domain.AccountBalances, error) {
	if asOf.IsZero() {
		return domain.AccountBalances{}, fmt.Errorf("%w: asOfDate is required", domain.ErrInvalidDate)
	}
	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		if err := s.knownAccount(doc, accountID); err != nil {
			return doc, err
		}
		doc.Balances.StartingBalance = doc.Balances.StartingBalance.With(accountID, domain.BalanceAnchor{
			Balance:  balance,
			AsOfDate: asOf,
		})
		return doc, nil
	})
	if err != nil {
		return domain.AccountBalances{}, err
	}
	return s.RefreshBalances(ctx)
}
