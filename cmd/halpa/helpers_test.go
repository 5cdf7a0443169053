package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/sheets"
	"github.com/Veraticus/halpa/internal/source"
	"github.com/Veraticus/halpa/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStores(t *testing.T) {
	stores := []model.Store{{ID: 1, Name: "Prisma"}, {ID: 2, Name: "Lidl"}, {ID: 3, Name: "K-Market"}}

	tests := []struct {
		name string
		only []string
		want []int64
	}{
		{"no filter", nil, []int64{1, 2, 3}},
		{"case insensitive", []string{"lidl", " PRISMA "}, []int64{1, 2}},
		{"unknown", []string{"Alepa"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, s := range selectStores(stores, tt.only) {
				got = append(got, s.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeedTargets(t *testing.T) {
	existing := []model.Store{{ID: 1, Name: "Prisma"}}
	configs := []source.Config{
		{Kind: source.KindKRuoka, Stores: []string{"K-Citymarket", "prisma"}},
		{Kind: source.KindFile, Stores: []string{"Lidl", " ", "K-Citymarket"}},
	}

	got := seedTargets(existing, configs)
	require.Len(t, got, 3)
	assert.Equal(t, model.Store{ID: 1, Name: "Prisma"}, got[0])
	assert.Equal(t, "K-Citymarket", got[1].Name)
	assert.Equal(t, "Lidl", got[2].Name)
}

func TestReadDelimitedFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(first, []byte("PRODUCT NAME | PRICE\nMaito 1l | 1.09\nBanaani | 0.30\n"), 0600))
	require.NoError(t, os.WriteFile(second, []byte("Kahvi 500g | 5.49\n"), 0600))

	batch, err := readDelimitedFiles([]string{first, second}, "Lidl")
	require.NoError(t, err)
	require.Len(t, batch, 3)

	assert.Equal(t, 2, batch[0].Line)
	assert.Equal(t, 3, batch[1].Line)
	assert.Equal(t, 4, batch[2].Line)
	for _, obs := range batch {
		assert.Equal(t, "Lidl", obs.Store)
	}

	_, err = readDelimitedFiles([]string{filepath.Join(dir, "missing.txt")}, "Lidl")
	require.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{"512 B", 512},
		{"1.0 KB", 1024},
		{"1.5 MB", 1536 * 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFileSize(tt.size))
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		want string
		ago  time.Duration
	}{
		{"just now", 10 * time.Second},
		{"1 minute ago", 90 * time.Second},
		{"5 minutes ago", 5 * time.Minute},
		{"1 hour ago", 61 * time.Minute},
		{"3 hours ago", 3 * time.Hour},
		{"yesterday", 25 * time.Hour},
		{"3 days ago", 72 * time.Hour},
		{"2024-02-20 12:00", 19 * 24 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRelativeTime(now.Add(-tt.ago), now), tt.want)
	}
}

func TestWriteCheckpoints(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, writeCheckpoints(&buf, nil, now))
	assert.Contains(t, buf.String(), "No checkpoints found")

	buf.Reset()
	require.NoError(t, writeCheckpoints(&buf, []storage.CheckpointInfo{
		{ID: "before-seed", CreatedAt: now.Add(-2 * time.Hour), FileSize: 2048, Products: 12, Prices: 40},
		{ID: "auto-reset-1", CreatedAt: now, IsAuto: true},
	}, now))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "before-seed")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "auto-reset-1")
}

func exportSnapshot() *aggregate.Snapshot {
	stores := []model.Store{{ID: 1, Name: "Prisma"}, {ID: 2, Name: "Lidl"}}
	products := []model.Product{
		{ID: 1, Name: "Maito 1l", Category: "Dairy", Unit: "1l"},
		{ID: 2, Name: "Kahvi 500g", Category: "Beverages", Unit: "500g"},
	}
	latest := map[model.PriceKey]model.LatestPrice{
		{ProductID: 1, StoreID: 1}: {Price: 129},
		{ProductID: 1, StoreID: 2}: {Price: 109},
		{ProductID: 2, StoreID: 1}: {Price: 549},
	}
	aggs := aggregate.Aggregate(products, stores, latest)
	return &aggregate.Snapshot{
		Products:  aggs,
		Stores:    stores,
		Summaries: aggregate.StoreSummaries(aggs, stores),
	}
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	report := buildReport(exportSnapshot(), now, 10)

	assert.Equal(t, now, report.GeneratedAt)
	assert.Len(t, report.Products, 2)
	assert.Len(t, report.Stores, 2)
	require.Len(t, report.Differences, 1, "only products priced at two stores")
	assert.Equal(t, "Maito 1l", report.Differences[0].Product.Name)
	assert.Len(t, report.Summaries, 2)
}

func TestExportReport(t *testing.T) {
	ctx := context.Background()
	report := buildReport(exportSnapshot(), time.Now(), 5)

	t.Run("writes the report", func(t *testing.T) {
		w := sheets.NewMockWriter("sheet-123")
		var out bytes.Buffer

		require.NoError(t, exportReport(ctx, w, report, &out))
		assert.Equal(t, 1, w.WriteCallCount)
		last, ok := w.LastReport()
		require.True(t, ok)
		assert.Len(t, last.Products, 2)
		assert.Contains(t, out.String(), "Exported 2 products across 2 stores")
		assert.Contains(t, out.String(), "https://docs.google.com/spreadsheets/d/sheet-123")
	})

	t.Run("write failure", func(t *testing.T) {
		w := sheets.NewMockWriter("sheet-123")
		w.SetWriteError(errors.New("quota exceeded"))

		err := exportReport(ctx, w, report, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("empty catalog skips the write", func(t *testing.T) {
		w := sheets.NewMockWriter("sheet-123")
		var out bytes.Buffer

		require.NoError(t, exportReport(ctx, w, sheets.Report{}, &out))
		assert.Zero(t, w.WriteCallCount)
		assert.Contains(t, out.String(), "nothing to export")
	})
}

func TestCertDir(t *testing.T) {
	dir, err := certDir("/var/lib/halpa/halpa.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/halpa", "certs"), dir)

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = certDir(":memory:")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "halpa", "certs"), dir)
}
