package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
	name string
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Fetch(ctx context.Context, store model.Store) ([]model.RawObservation, error) {
	args := m.Called(ctx, store)
	if obs, ok := args.Get(0).([]model.RawObservation); ok {
		return obs, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRegistry_For(t *testing.T) {
	kRuoka := &mockSource{name: "k-ruoka"}
	kCity := &mockSource{name: "k-citymarket-file"}
	sok := &mockSource{name: "s-kaupat"}

	reg := NewRegistry()
	reg.Register("k-", kRuoka)
	reg.Register("K-Citymarket", kCity)
	reg.Register("prisma", sok)

	tests := []struct {
		want    *mockSource
		wantErr error
		name    string
		store   string
	}{
		{name: "exact match beats earlier substring", store: "K-Citymarket", want: kCity},
		{name: "substring", store: "K-Supermarket Kamppi", want: kRuoka},
		{name: "case insensitive", store: "PRISMA Itis", want: sok},
		{name: "no source", store: "Lidl", wantErr: common.ErrNoSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.For(tt.store)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	assert.Equal(t, []string{"k-", "k-citymarket", "prisma"}, reg.Patterns())
}

func TestRegistry_FetchAll(t *testing.T) {
	ok := &mockSource{name: "ok"}
	broken := &mockSource{name: "broken"}

	prisma := model.Store{ID: 1, Name: "Prisma"}
	lidl := model.Store{ID: 2, Name: "Lidl"}
	alepa := model.Store{ID: 3, Name: "Alepa"}

	ok.On("Fetch", mock.Anything, prisma).Return([]model.RawObservation{{Store: "Prisma", Product: "Maito", Price: "1.29", Line: 1}}, nil)
	broken.On("Fetch", mock.Anything, lidl).Return(nil, errors.New("timeout"))

	reg := NewRegistry()
	reg.Register("prisma", ok)
	reg.Register("lidl", broken)

	results := reg.FetchAll(context.Background(), []model.Store{prisma, lidl, alepa})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "ok", results[0].Source)
	assert.Len(t, results[0].Observations, 1)

	assert.EqualError(t, results[1].Err, "timeout")
	assert.ErrorIs(t, results[2].Err, common.ErrNoSource)
	assert.Equal(t, alepa, results[2].Store)

	ok.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	data := "PRODUCT NAME | PRICE\nHEDELMÄT\nPirkka banaani | 0,30\nKurkku | 1.49\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s-market.txt"), []byte(data), 0600))

	src := NewFileSource(filepath.Join(dir, "{store}.txt"))
	observedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return observedAt }

	obs, err := src.Fetch(context.Background(), model.Store{ID: 1, Name: "S-Market"})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "Pirkka banaani", obs[0].Product)
	assert.Equal(t, "0,30", obs[0].Price)
	assert.Equal(t, "S-Market", obs[0].Store)
	assert.Equal(t, 3, obs[0].Line)
	assert.Equal(t, observedAt, obs[1].ObservedAt)

	_, err = src.Fetch(context.Background(), model.Store{ID: 2, Name: "Lidl"})
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "k-citymarket", Slug("K-Citymarket"))
	assert.Equal(t, "s-market-kamppi", Slug("  S-Market   Kamppi "))
}

func TestBuildRegistry(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		configs []Config
	}{
		{
			name: "file and retailer",
			configs: []Config{
				{Kind: "file", Path: "data/{store}.csv", Stores: []string{"s-market"}},
				{Kind: "k-ruoka", BaseURL: "https://example.test/search", Stores: []string{"k-"}},
			},
		},
		{name: "unknown kind", configs: []Config{{Kind: "ftp", Stores: []string{"x"}}}, wantErr: common.ErrInvalidConfig},
		{name: "file without path", configs: []Config{{Kind: "file", Stores: []string{"x"}}}, wantErr: common.ErrMissingConfig},
		{name: "retailer without url", configs: []Config{{Kind: "s-kaupat", Stores: []string{"x"}}}, wantErr: common.ErrMissingConfig},
		{name: "no stores", configs: []Config{{Kind: "file", Path: "a.csv"}}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := BuildRegistry(tt.configs, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			src, err := reg.For("K-Supermarket")
			require.NoError(t, err)
			assert.Equal(t, "k-ruoka", src.Name())
		})
	}
}
