package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		BackendMemory: NewMemory(),
		BackendSQLite: sq,
	}
}

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			ID:          "7b0c0ad4-6a8b-5d7b-9f39-3a4a3c8e3f10",
			Date:        model.NewDate(2024, time.January, 15),
			Description: "GRAB*FOOD|KL|REF1",
			Amount:      decimal.RequireFromString("-25.50"),
			Balance:     decimal.RequireFromString("1500.25"),
			Category:    model.CategoryDining,
			Icon:        "misc",
			TransactionDetails: model.TransactionDetail{
				TransactionType: "GRAB*FOOD", MerchantInfo: "KL", ReferenceNumber: "REF1",
			},
		},
		{
			ID:          "1d1f3f1e-0000-5000-8000-000000000002",
			Date:        model.NewDate(2024, time.February, 1),
			Description: "IBG CREDIT|ABC CORP|REF2",
			Amount:      decimal.RequireFromString("3500"),
			Balance:     decimal.Zero,
			Category:    model.CategoryIncome,
		},
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := s.Get(context.Background(), "nope")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "k", []byte("one")))
			require.NoError(t, s.Set(ctx, "k", []byte("two")))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", string(v))
		})
	}
}

func TestTransactions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleTransactions()
			require.NoError(t, SaveTransactions(ctx, s, want))

			got, err := LoadTransactions(ctx, s)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i]), "transaction %d: want %+v, got %+v", i, want[i], got[i])
			}
		})
	}
}

func TestTransactions_Empty(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	got, err := LoadTransactions(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, SaveTransactions(ctx, s, nil))
	raw, ok, err := s.Get(ctx, TransactionsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", string(raw))
}

func TestTransactions_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, TransactionsKey, []byte("{not json")))
	_, err := LoadTransactions(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding transactions")
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tally.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, SaveTransactions(ctx, s, sampleTransactions()))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err, "reopening runs migrations again without error")
	defer s.Close()

	got, err := LoadTransactions(ctx, s)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(BackendSQLite, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", "")
	assert.Error(t, err)
}
