package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/repository/memory"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockDocumentRepository is an in-memory domain.DocumentRepository with error injection
type MockDocumentRepository struct {
	*memory.DocumentRepository
	LoadErr   error
	SaveErr   error
	mu        sync.Mutex
	saveCalls int
}

// NewMockDocumentRepository creates an empty MockDocumentRepository
func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{DocumentRepository: memory.NewDocumentRepository()}
}

// NewMockDocumentRepositoryFromJSON seeds the repository with a stored document
func NewMockDocumentRepositoryFromJSON(data string) *MockDocumentRepository {
	return &MockDocumentRepository{DocumentRepository: memory.NewDocumentRepositoryFromJSON([]byte(data))}
}

// Load returns LoadErr when set
func (m *MockDocumentRepository) Load(ctx context.Context) (domain.Document, error) {
	if m.LoadErr != nil {
		return domain.Document{}, m.LoadErr
	}
	return m.DocumentRepository.Load(ctx)
}

// Save returns SaveErr when set and counts calls
func (m *MockDocumentRepository) Save(ctx context.Context, doc domain.Document) error {
	m.mu.Lock()
	m.saveCalls++
	m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	return m.DocumentRepository.Save(ctx, doc)
}

// SaveCalls returns how many times Save was called
func (m *MockDocumentRepository) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// MockTransactionRepository is an in-memory domain.TransactionRepository with error injection
type MockTransactionRepository struct {
	*memory.TransactionRepository
	AppendErr     error
	ListErr       error
	MarkSyncedErr error
}

// NewMockTransactionRepository creates an empty MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{TransactionRepository: memory.NewTransactionRepository()}
}

// Append returns AppendErr when set
func (m *MockTransactionRepository) Append(ctx context.Context, r domain.Record) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	return m.TransactionRepository.Append(ctx, r)
}

// List returns ListErr when set
func (m *MockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Record, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.TransactionRepository.List(ctx, filter)
}

// MarkSynced returns MarkSyncedErr when set
func (m *MockTransactionRepository) MarkSynced(ctx context.Context, ids []uuid.UUID) (int, error) {
	if m.MarkSyncedErr != nil {
		return 0, m.MarkSyncedErr
	}
	return m.TransactionRepository.MarkSynced(ctx, ids)
}

// AddRecord stores r directly, bypassing validation
func (m *MockTransactionRepository) AddRecord(r domain.Record) {
	if err := m.TransactionRepository.Append(context.Background(), r); err != nil {
		panic(fmt.Sprintf("AddRecord: %v", err))
	}
}

// MockExtractor is a receipt extractor test double
type MockExtractor struct {
	ExtractFn func(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error)
	mu        sync.Mutex
	calls     []ExtractCall
}

// ExtractCall records the arguments of one Extract call
type ExtractCall struct {
	Size     int
	MimeType string
	APIKey   string
}

// Extract records the call and delegates to ExtractFn
func (m *MockExtractor) Extract(ctx context.Context, image []byte, mimeType, apiKey string) (domain.ReceiptExtraction, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ExtractCall{Size: len(image), MimeType: mimeType, APIKey: apiKey})
	m.mu.Unlock()
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, image, mimeType, apiKey)
	}
	return SampleExtraction(), nil
}

// Calls returns the recorded calls
func (m *MockExtractor) Calls() []ExtractCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExtractCall(nil), m.calls...)
}

// SampleExtraction is a plausible grocery receipt
func SampleExtraction() domain.ReceiptExtraction {
	return domain.ReceiptExtraction{
		Store: "Fresh Market",
		Date:  "2024-03-14",
		Time:  "18:42",
		Total: decimal.NewFromInt(45250),
		Items: []domain.ReceiptItem{
			{Name: "Milk", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(12000)},
			{Name: "Bread", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(21250)},
		},
		Confidence:        0.92,
		SuggestedCategory: "groceries",
		SuggestedType:     domain.TypeNeed,
	}
}

// MockArchive is an in-memory receipt archive
type MockArchive struct {
	UploadErr error
	mu        sync.Mutex
	objects   map[string][]byte
}

// NewMockArchive creates an empty MockArchive
func NewMockArchive() *MockArchive {
	return &MockArchive{objects: make(map[string][]byte)}
}

// Upload stores the object and returns a fake URL
func (m *MockArchive) Upload(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return "https://receipts.test/" + key, nil
}

// Objects returns the stored object keys and sizes
func (m *MockArchive) Objects() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.objects))
	for k, v := range m.objects {
		out[k] = len(v)
	}
	return out
}

// MockPusher is a remote sync test double
type MockPusher struct {
	PushFn  func(ctx context.Context, records []domain.Record) ([]uuid.UUID, error)
	mu      sync.Mutex
	batches [][]domain.Record
}

// Push records the batch and confirms every record unless PushFn says otherwise
func (m *MockPusher) Push(ctx context.Context, records []domain.Record) ([]uuid.UUID, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]domain.Record(nil), records...))
	m.mu.Unlock()
	if m.PushFn != nil {
		return m.PushFn(ctx, records)
	}
	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids, nil
}

// Batches returns every pushed batch
func (m *MockPusher) Batches() [][]domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.Record(nil), m.batches...)
}

// RecordingPublisher captures published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

// Publish implements websocket.EventPublisher
func (p *RecordingPublisher) Publish(event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Types returns the types of the published events in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// Events returns the published events
func (p *RecordingPublisher) Events() []websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]websocket.Event(nil), p.events...)
}

// FixedClock returns a clock function frozen at t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Expense builds a stored expense for ledger tests
func Expense(account string, amount int64, date domain.Date) domain.Record {
	return domain.ExpenseRecord(domain.Expense{
		ID:            uuid.New(),
		CreatedAt:     date.Time,
		Date:          date,
		Amount:        decimal.NewFromInt(amount),
		Category:      "GROCERIES",
		Type:          domain.TypeNeed,
		PaymentMethod: account,
		AccountID:     account,
		Source:        domain.ProvenanceManual,
	})
}

// Income builds a stored income for ledger tests
func Income(account string, amount int64, date domain.Date) domain.Record {
	return domain.IncomeRecord(domain.Income{
		ID:        uuid.New(),
		CreatedAt: date.Time,
		Date:      date,
		Amount:    decimal.NewFromInt(amount),
		Category:  domain.IncomeSalary,
		AccountID: account,
	})
}

// Transfer builds a stored transfer for ledger tests
func Transfer(from, to string, amount int64, date domain.Date) domain.Record {
	return domain.TransferRecord(domain.Transfer{
		ID:            uuid.New(),
		CreatedAt:     date.Time,
		Date:          date,
		Amount:        decimal.NewFromInt(amount),
		FromAccountID: from,
		ToAccountID:   to,
	})
}
