package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestDocuments(t *testing.T) (*DocumentService, *testutil.MockDocumentRepository) {
	t.Helper()
	repo := testutil.NewMockDocumentRepository()
	return loadTestDocuments(t, repo), repo
}

func loadTestDocuments(t *testing.T, repo *testutil.MockDocumentRepository) *DocumentService {
	t.Helper()
	docs := NewDocumentService(repo)
	docs.SetClock(testutil.FixedClock(testNow))
	require.NoError(t, docs.Load(context.Background()))
	return docs
}

func TestDocumentService_LoadCreatesDocument(t *testing.T) {
	docs, repo := newTestDocuments(t)

	doc := docs.Snapshot()
	assert.Len(t, doc.Categories, len(domain.BuiltinCategories()))
	assert.Equal(t, "system", doc.Theme)
	assert.Equal(t, 1, repo.SaveCalls())
	assert.NotEmpty(t, repo.Raw())
}

func TestDocumentService_LoadMigratesLegacyStartingBalance(t *testing.T) {
	repo := testutil.NewMockDocumentRepositoryFromJSON(`{
		"categories": [{"id": "RENT", "name": "Rent", "type": "NEED"}],
		"balances": {"cash": 0, "startingBalance": {"bank": 5000, "asOfDate": "2024-01-01"}}
	}`)
	docs := loadTestDocuments(t, repo)

	anchor, ok := docs.Snapshot().Balances.StartingBalance.Anchor(domain.LegacyBankAccountID)
	require.True(t, ok)
	assert.True(t, anchor.Balance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "2024-01-01", anchor.AsOfDate.String())
	assert.Equal(t, 1, repo.SaveCalls())

	var stored struct {
		Balances struct {
			StartingBalance map[string]json.RawMessage `json:"startingBalance"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(repo.Raw(), &stored))
	assert.Contains(t, stored.Balances.StartingBalance, "accountBalances")
	assert.NotContains(t, stored.Balances.StartingBalance, "bank")
	assert.NotContains(t, stored.Balances.StartingBalance, "asOfDate")
}

func TestDocumentService_LoadCurrentDocumentIsNotRewritten(t *testing.T) {
	repo := testutil.NewMockDocumentRepository()
	first := loadTestDocuments(t, repo)
	require.NotNil(t, first)

	loadTestDocuments(t, repo)

	assert.Equal(t, 1, repo.SaveCalls())
}

func TestDocumentService_LoadError(t *testing.T) {
	repo := testutil.NewMockDocumentRepository()
	repo.LoadErr = errors.New("disk on fire")
	docs := NewDocumentService(repo)

	err := docs.Load(context.Background())

	assert.ErrorIs(t, err, repo.LoadErr)
}

func TestDocumentService_UpdateFailureKeepsDocument(t *testing.T) {
	docs, repo := newTestDocuments(t)
	repo.SaveErr = errors.New("write failed")

	_, err := docs.Update(context.Background(), func(doc domain.Document) (domain.Document, error) {
		doc.Theme = "dark"
		return doc, nil
	})

	assert.ErrorIs(t, err, repo.SaveErr)
	assert.Equal(t, "system", docs.Snapshot().Theme)
}

func TestDocumentService_UpdateFnErrorKeepsDocument(t *testing.T) {
	docs, repo := newTestDocuments(t)
	boom := errors.New("rejected")

	_, err := docs.Update(context.Background(), func(doc domain.Document) (domain.Document, error) {
		doc.Theme = "dark"
		return doc, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "system", docs.Snapshot().Theme)
	assert.Equal(t, 1, repo.SaveCalls())
}

func TestDocumentService_SnapshotIsIsolated(t *testing.T) {
	docs, _ := newTestDocuments(t)

	snap := docs.Snapshot()
	snap.Categories[0].Name = "Changed"

	assert.NotEqual(t, "Changed", docs.Snapshot().Categories[0].Name)
}

func TestDocumentService_UpdateSettings(t *testing.T) {
	docs, _ := newTestDocuments(t)
	key := "gm-key"
	endpoint := " https://sync.example.com/hook "
	secret := "s3cret"
	theme := "dark"

	settings, err := docs.UpdateSettings(context.Background(), SettingsInput{
		GeminiKey:    &key,
		SyncEndpoint: &endpoint,
		SyncSecret:   &secret,
		Theme:        &theme,
	})
	require.NoError(t, err)

	assert.Equal(t, Settings{
		HasGeminiKey:  true,
		SyncEndpoint:  "https://sync.example.com/hook",
		HasSyncSecret: true,
		Theme:         "dark",
	}, settings)
	doc := docs.Snapshot()
	assert.Equal(t, "gm-key", doc.GeminiKey)
	assert.Equal(t, "s3cret", doc.Sync.Secret)
}

func TestDocumentService_UpdateSettingsRejectsBadEndpoint(t *testing.T) {
	docs, _ := newTestDocuments(t)

	for _, endpoint := range []string{"ftp://example.com", "not a url", "https://"} {
		e := endpoint
		_, err := docs.UpdateSettings(context.Background(), SettingsInput{SyncEndpoint: &e})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, endpoint)
	}
	assert.Empty(t, docs.GetSettings().SyncEndpoint)
}

func TestDocumentService_UpdateSettingsClearsEndpoint(t *testing.T) {
	docs, _ := newTestDocuments(t)
	endpoint := "https://sync.example.com"
	_, err := docs.UpdateSettings(context.Background(), SettingsInput{SyncEndpoint: &endpoint})
	require.NoError(t, err)

	empty := ""
	settings, err := docs.UpdateSettings(context.Background(), SettingsInput{SyncEndpoint: &empty})
	require.NoError(t, err)

	assert.Empty(t, settings.SyncEndpoint)
}
