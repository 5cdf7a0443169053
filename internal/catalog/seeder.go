package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/halpa/internal/classification"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"github.com/Veraticus/halpa/internal/normalize"
)

// Writer is the slice of catalog storage the seeder needs.
type Writer interface {
	CreateStore(ctx context.Context, name string) (*model.Store, error)
	CreateProduct(ctx context.Context, product *model.Product) (bool, error)
	UpsertProductPrice(ctx context.Context, productID, storeID int64, price money.Cents, recordedAt time.Time) error
}

// Report summarizes a seeding run.
type Report struct {
	Skipped          []string
	Stores           int
	ProductsCreated  int
	ProductsExisting int
	Merged           int
	Prices           int
}

var namedQuantity = regexp.MustCompile(`(?i)\d+\s?(g|kg|ml|cl|dl|l|kpl)\b`)

// Seeder creates products from seed entries. Entries whose names normalize to
// the same key are merged into one product; the first entry decides its
// category and unit.
type Seeder struct {
	store      Writer
	normalizer *normalize.Normalizer
	inferencer *classification.Inferencer
	now        func() time.Time
}

// NewSeeder creates a seeder. Nil collaborators fall back to the defaults.
func NewSeeder(store Writer, n *normalize.Normalizer, inf *classification.Inferencer) *Seeder {
	if n == nil {
		n = normalize.New(normalize.DefaultRules())
	}
	if inf == nil {
		inf = classification.MustDefault()
	}
	return &Seeder{
		store:      store,
		normalizer: n,
		inferencer: inf,
		now:        time.Now,
	}
}

type seedProduct struct {
	product model.Product
	prices  []SeedPrice
}

// Seed creates stores, products and prices. Running it twice with the same
// input creates no new stores or products; prices are history and are
// recorded again.
func (s *Seeder) Seed(ctx context.Context, file *SeedFile) (*Report, error) {
	report := &Report{}
	stores := make(map[string]model.Store)

	ensureStore := func(name string) (model.Store, error) {
		name = strings.TrimSpace(name)
		if st, ok := stores[name]; ok {
			return st, nil
		}
		st, err := s.store.CreateStore(ctx, name)
		if err != nil {
			return model.Store{}, fmt.Errorf("failed to create store %q: %w", name, err)
		}
		stores[name] = *st
		report.Stores++
		return *st, nil
	}

	for _, name := range file.Stores {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, err := ensureStore(name); err != nil {
			return report, err
		}
	}

	products := s.plan(file.Products, report)

	recordedAt := s.now()
	for _, sp := range products {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		product := sp.product
		created, err := s.store.CreateProduct(ctx, &product)
		if err != nil {
			return report, fmt.Errorf("failed to create product %q: %w", product.Name, err)
		}
		if created {
			report.ProductsCreated++
		} else {
			report.ProductsExisting++
		}

		for _, p := range sp.prices {
			cents, err := money.FromMajor(p.Price)
			if err != nil || cents <= 0 || strings.TrimSpace(p.Store) == "" {
				report.Skipped = append(report.Skipped,
					fmt.Sprintf("%s: invalid price %v at %q", product.Name, p.Price, p.Store))
				continue
			}
			st, err := ensureStore(p.Store)
			if err != nil {
				return report, err
			}
			if err := s.store.UpsertProductPrice(ctx, product.ID, st.ID, cents, recordedAt); err != nil {
				return report, fmt.Errorf("failed to record price for %q: %w", product.Name, err)
			}
			report.Prices++
		}
	}

	slog.Info("Catalog seeded",
		"stores", report.Stores,
		"created", report.ProductsCreated,
		"existing", report.ProductsExisting,
		"merged", report.Merged,
		"prices", report.Prices)

	return report, nil
}

// plan merges entries by normalized name, keeping first-seen order.
func (s *Seeder) plan(entries []SeedEntry, report *Report) []*seedProduct {
	byKey := make(map[string]*seedProduct)
	ordered := make([]*seedProduct, 0, len(entries))

	for _, e := range entries {
		key := s.normalizer.Normalize(e.Name)
		if key == "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%q normalizes to nothing", e.Name))
			continue
		}

		if existing, ok := byKey[key]; ok {
			existing.prices = append(existing.prices, e.Prices...)
			report.Merged++
			continue
		}

		category, unit := s.inferencer.Infer(e.Name, e.Category, e.Unit)
		sp := &seedProduct{
			product: model.Product{
				Name:     DisplayName(key, unit),
				Category: category,
				Unit:     unit,
			},
			prices: append([]SeedPrice(nil), e.Prices...),
		}
		byKey[key] = sp
		ordered = append(ordered, sp)
	}

	return ordered
}

// DisplayName title-cases each word of a normalized name and appends the unit
// when the name carries no quantity and the unit is not a per-piece or per-kg
// price.
func DisplayName(normalized, unit string) string {
	words := strings.Fields(normalized)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	name := strings.Join(words, " ")

	unit = strings.TrimSpace(unit)
	if name != "" && unit != "" && !namedQuantity.MatchString(name) &&
		!strings.EqualFold(unit, classification.UnitPiece) && !strings.EqualFold(unit, "kg") {
		name += " " + unit
	}
	return name
}
