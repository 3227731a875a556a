package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// BudgetService resolves and edits monthly budgets
type BudgetService struct {
	docs            *DocumentService
	transactionRepo domain.TransactionRepository
	eventPublisher  websocket.EventPublisher
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(docs *DocumentService, transactionRepo domain.TransactionRepository) *BudgetService {
	return &BudgetService{docs: docs, transactionRepo: transactionRepo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *BudgetService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *BudgetService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// GetBudget returns the budget for month. A month without a stored budget
// gets a synthesized one, which is not stored until the first edit.
func (s *BudgetService) GetBudget(month domain.MonthKey) domain.MonthlyBudget {
	return resolveBudget(s.docs.Snapshot(), month)
}

func resolveBudget(doc domain.Document, month domain.MonthKey) domain.MonthlyBudget {
	registry := doc.Registry()
	if stored, ok := doc.Budgets.Lookup(month); ok {
		return stored.WithDefaults(registry)
	}
	return domain.SynthesizeBudget(month, registry)
}

// storedOrSynthesized is the value an edit starts from: the stored budget
// as is, or a synthesized one for a month never edited before
func storedOrSynthesized(doc domain.Document, month domain.MonthKey) domain.MonthlyBudget {
	if stored, ok := doc.Budgets.Lookup(month); ok {
		return stored
	}
	return domain.SynthesizeBudget(month, doc.Registry())
}

// SetSalary replaces the salary of month. Negative amounts become 0.
func (s *BudgetService) SetSalary(ctx context.Context, month domain.MonthKey, amount decimal.Decimal) (domain.MonthlyBudget, error) {
	doc, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		next := storedOrSynthesized(doc, month).WithSalary(amount)
		doc.Budgets = doc.Budgets.With(next)
		return doc, nil
	})
	if err != nil {
		return domain.MonthlyBudget{}, err
	}
	budget := resolveBudget(doc, month)
	s.publishEvent(websocket.BudgetUpdated(budget))
	return budget, nil
}

// SetCategoryAmount replaces one category amount of month. Negative amounts
// become 0; the category must be registered.
func (s *BudgetService) SetCategoryAmount(ctx context.Context, month domain.MonthKey, categoryID string, amount decimal.Decimal) (domain.MonthlyBudget, error) {
	doc, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		registry := doc.Registry()
		def, err := registry.Resolve(categoryID)
		if err != nil {
			return doc, err
		}
		next := storedOrSynthesized(doc, month).WithCategoryAmount(def.ID, amount, def.DefaultType)
		doc.Budgets = doc.Budgets.With(next)
		return doc, nil
	})
	if err != nil {
		return domain.MonthlyBudget{}, err
	}
	budget := resolveBudget(doc, month)
	s.publishEvent(websocket.BudgetUpdated(budget))
	return budget, nil
}

// StoredMonths lists the months that have an edited budget
func (s *BudgetService) StoredMonths() []domain.MonthKey {
	return s.docs.Snapshot().Budgets.Months()
}

// CategoryAllocation is one category line of a budget summary
type CategoryAllocation struct {
	CategoryID      string                    `json:"categoryId"`
	Name            string                    `json:"name"`
	Icon            string                    `json:"icon"`
	Type            domain.ClassificationType `json:"type"`
	Amount          decimal.Decimal           `json:"amount"`
	PercentOfSalary decimal.Decimal           `json:"percentOfSalary"`
}

// BudgetSummary is a month's budget with its derived values
type BudgetSummary struct {
	Month         domain.MonthKey                               `json:"month"`
	Salary        decimal.Decimal                               `json:"salary"`
	TotalBudgeted decimal.Decimal                               `json:"totalBudgeted"`
	Available     decimal.Decimal                               `json:"available"`
	Categories    []CategoryAllocation                          `json:"categories"`
	TotalsByType  map[domain.ClassificationType]decimal.Decimal `json:"totalsByType"`
	Stored        bool                                          `json:"stored"`
}

// Summary returns the budget of month with totals and percentages
func (s *BudgetService) Summary(month domain.MonthKey) BudgetSummary {
	doc := s.docs.Snapshot()
	registry := doc.Registry()
	budget := resolveBudget(doc, month)
	_, stored := doc.Budgets.Lookup(month)

	summary := BudgetSummary{
		Month:         month,
		Salary:        budget.Salary,
		TotalBudgeted: budget.TotalBudgeted(),
		Available:     budget.Available(),
		TotalsByType:  budget.TotalsByType(),
		Stored:        stored,
	}
	for _, id := range orderedCategoryIDs(registry, budget.Categories) {
		def := registry.ResolveOrUncategorized(id)
		c := budget.Categories[id]
		summary.Categories = append(summary.Categories, CategoryAllocation{
			CategoryID:      id,
			Name:            def.Name,
			Icon:            def.Icon,
			Type:            c.Type,
			Amount:          c.Amount,
			PercentOfSalary: budget.Percentage(id),
		})
	}
	return summary
}

// orderedCategoryIDs lists registry categories first in registry order,
// then any other ids found in the budget, sorted
func orderedCategoryIDs[V any](registry *domain.CategoryRegistry, extra map[string]V) []string {
	ids := make([]string, 0, registry.Len()+len(extra))
	for _, def := range registry.All() {
		ids = append(ids, def.ID)
	}
	var rest []string
	for id := range extra {
		if !registry.Contains(id) {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// CategoryProgress compares one category's allocation with its spending
type CategoryProgress struct {
	CategoryID  string                    `json:"categoryId"`
	Name        string                    `json:"name"`
	Icon        string                    `json:"icon"`
	Type        domain.ClassificationType `json:"type"`
	Budgeted    decimal.Decimal           `json:"budgeted"`
	Spent       decimal.Decimal           `json:"spent"`
	Remaining   decimal.Decimal           `json:"remaining"`
	PercentUsed decimal.Decimal           `json:"percentUsed"`
}

// TypeProgress totals allocation and spending for one classification
type TypeProgress struct {
	Type     domain.ClassificationType `json:"type"`
	Budgeted decimal.Decimal           `json:"budgeted"`
	Spent    decimal.Decimal           `json:"spent"`
}

// BudgetProgress is the planning view of a month
type BudgetProgress struct {
	Month         domain.MonthKey    `json:"month"`
	Salary        decimal.Decimal    `json:"salary"`
	TotalBudgeted decimal.Decimal    `json:"totalBudgeted"`
	TotalSpent    decimal.Decimal    `json:"totalSpent"`
	Available     decimal.Decimal    `json:"available"`
	Categories    []CategoryProgress `json:"categories"`
	Types         []TypeProgress     `json:"types"`
}

// Progress compares the budget of month with the expenses dated in it.
// Spending on unknown categories is reported under the uncategorized id.
func (s *BudgetService) Progress(ctx context.Context, month domain.MonthKey) (BudgetProgress, error) {
	doc := s.docs.Snapshot()
	registry := doc.Registry()
	budget := resolveBudget(doc, month)

	first, last := month.Bounds()
	records, err := s.transactionRepo.List(ctx, domain.TransactionFilter{Kind: domain.KindExpense, From: first, To: last})
	if err != nil {
		return BudgetProgress{}, fmt.Errorf("list expenses: %w", err)
	}

	spentByCategory := make(map[string]decimal.Decimal)
	spentByType := make(map[domain.ClassificationType]decimal.Decimal)
	totalSpent := decimal.Zero
	for _, r := range records {
		e := r.Expense
		id := e.Category
		if !registry.Contains(id) {
			id = domain.UncategorizedID
		}
		spentByCategory[id] = spentByCategory[id].Add(e.Amount)
		t := registry.EffectiveType(e.Category, e.Type)
		spentByType[t] = spentByType[t].Add(e.Amount)
		totalSpent = totalSpent.Add(e.Amount)
	}

	progress := BudgetProgress{
		Month:         month,
		Salary:        budget.Salary,
		TotalBudgeted: budget.TotalBudgeted(),
		TotalSpent:    totalSpent,
		Available:     budget.Available(),
	}

	lines := make(map[string]domain.CategoryBudget, len(budget.Categories)+1)
	for id, c := range budget.Categories {
		lines[id] = c
	}
	if _, ok := spentByCategory[domain.UncategorizedID]; ok {
		if _, exists := lines[domain.UncategorizedID]; !exists {
			lines[domain.UncategorizedID] = domain.CategoryBudget{Amount: decimal.Zero, Type: domain.Uncategorized.DefaultType}
		}
	}
	for _, id := range orderedCategoryIDs(registry, lines) {
		def := registry.ResolveOrUncategorized(id)
		c := lines[id]
		spent := spentByCategory[id]
		progress.Categories = append(progress.Categories, CategoryProgress{
			CategoryID:  id,
			Name:        def.Name,
			Icon:        def.Icon,
			Type:        c.Type,
			Budgeted:    c.Amount,
			Spent:       spent,
			Remaining:   c.Amount.Sub(spent),
			PercentUsed: domain.PercentOf(spent, c.Amount),
		})
	}

	budgetedByType := budget.TotalsByType()
	for _, t := range domain.ClassificationTypes {
		progress.Types = append(progress.Types, TypeProgress{
			Type:     t,
			Budgeted: budgetedByType[t],
			Spent:    spentByType[t],
		})
	}
	return progress, nil
}
