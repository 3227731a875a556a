package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
)

// AccountService handles bank account business logic
type AccountService struct {
	docs           *DocumentService
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(docs *DocumentService) *AccountService {
	return &AccountService{docs: docs, now: time.Now}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *AccountService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *AccountService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// ListAccounts returns the bank accounts in creation order
func (s *AccountService) ListAccounts() []domain.BankAccount {
	return s.docs.Snapshot().BankAccounts
}

// GetAccount returns one bank account
func (s *AccountService) GetAccount(id string) (domain.BankAccount, error) {
	account, ok := s.docs.Snapshot().Account(id)
	if !ok {
		return domain.BankAccount{}, domain.ErrAccountNotFound
	}
	return account, nil
}

// CreateAccountInput holds the input for creating a bank account
type CreateAccountInput struct {
	ID        string // optional; derived from Name when empty
	Name      string
	IsDefault bool
}

// CreateAccount adds a bank account. The first account becomes the default
// so card payments have somewhere to go.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput) (domain.BankAccount, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.BankAccount{}, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return domain.BankAccount{}, domain.ErrNameTooLong
	}

	id := strings.ToLower(strings.TrimSpace(input.ID))
	if id == "" {
		id = domain.AccountIDFromName(name)
	}
	if id == "" {
		return domain.BankAccount{}, fmt.Errorf("%w: account id", domain.ErrInvalidInput)
	}
	if domain.IsReservedAccountID(id) {
		return domain.BankAccount{}, fmt.Errorf("%w: %s", domain.ErrReservedAccount, id)
	}

	var created domain.BankAccount
	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		if _, exists := doc.Account(id); exists {
			return doc, fmt.Errorf("%w: %s", domain.ErrAccountExists, id)
		}
		created = domain.BankAccount{
			ID:        id,
			Name:      name,
			IsDefault: input.IsDefault || len(doc.BankAccounts) == 0,
			CreatedAt: s.now().UTC(),
		}
		if created.IsDefault {
			clearDefault(doc.BankAccounts)
		}
		doc.BankAccounts = append(doc.BankAccounts, created)
		return doc, nil
	})
	if err != nil {
		return domain.BankAccount{}, err
	}

	s.publishEvent(websocket.AccountCreated(created))
	return created, nil
}

// RenameAccount changes the display name of an account; the id is kept
func (s *AccountService) RenameAccount(ctx context.Context, id, name string) (domain.BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BankAccount{}, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return domain.BankAccount{}, domain.ErrNameTooLong
	}

	var renamed domain.BankAccount
	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		i := accountIndex(doc.BankAccounts, id)
		if i < 0 {
			return doc, domain.ErrAccountNotFound
		}
		doc.BankAccounts[i].Name = name
		renamed = doc.BankAccounts[i]
		return doc, nil
	})
	if err != nil {
		return domain.BankAccount{}, err
	}

	s.publishEvent(websocket.AccountUpdated(renamed))
	return renamed, nil
}

// SetDefaultAccount makes id the account card payments are charged to.
// Every other account loses the flag.
func (s *AccountService) SetDefaultAccount(ctx context.Context, id string) (domain.BankAccount, error) {
	var account domain.BankAccount
	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		i := accountIndex(doc.BankAccounts, id)
		if i < 0 {
			return doc, domain.ErrAccountNotFound
		}
		clearDefault(doc.BankAccounts)
		doc.BankAccounts[i].IsDefault = true
		account = doc.BankAccounts[i]
		return doc, nil
	})
	if err != nil {
		return domain.BankAccount{}, err
	}

	s.publishEvent(websocket.AccountUpdated(account))
	return account, nil
}

// DeleteAccount removes a bank account along with its balance anchor.
// Transactions that reference it are kept. Cash can never be deleted.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if id == domain.CashAccountID {
		return fmt.Errorf("%w: %s", domain.ErrReservedAccount, id)
	}
	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		i := accountIndex(doc.BankAccounts, id)
		if i < 0 {
			return doc, domain.ErrAccountNotFound
		}
		doc.BankAccounts = append(doc.BankAccounts[:i], doc.BankAccounts[i+1:]...)
		doc.Balances.StartingBalance = doc.Balances.StartingBalance.Without(id)
		delete(doc.Balances.Accounts, id)
		return doc, nil
	})
	if err != nil {
		return err
	}

	s.publishEvent(websocket.AccountDeleted(map[string]string{"id": id}))
	return nil
}

func accountIndex(accounts []domain.BankAccount, id string) int {
	for i, a := range accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func clearDefault(accounts []domain.BankAccount) {
	for i := range accounts {
		accounts[i].IsDefault = false
	}
}
