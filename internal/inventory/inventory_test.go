package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/punchamoorthee/checkoutops/internal/domain"
	"github.com/punchamoorthee/checkoutops/internal/store"
)

type fakePackage struct {
	id    string
	name  string
	ptype string
	stock int
}

type fakeStore struct {
	packages map[string]*fakePackage // keyed by id
	failSet  map[string]bool
}

func newFakeStore(pkgs ...*fakePackage) *fakeStore {
	fs := &fakeStore{packages: map[string]*fakePackage{}, failSet: map[string]bool{}}
	for _, p := range pkgs {
		fs.packages[p.id] = p
	}
	return fs
}

func (f *fakeStore) level(p *fakePackage) *domain.InventoryLevel {
	return &domain.InventoryLevel{
		PackageID:    p.id,
		ProductName:  p.name,
		ProductType:  p.ptype,
		CurrentStock: p.stock,
		IsLowStock:   p.stock <= DefaultLowStockThreshold,
	}
}

func (f *fakeStore) GetLevelByProduct(_ context.Context, name, ptype string) (*domain.InventoryLevel, error) {
	for _, p := range f.packages {
		if p.name == name && p.ptype == ptype {
			return f.level(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetLevelByID(_ context.Context, id string) (*domain.InventoryLevel, error) {
	p, ok := f.packages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.level(p), nil
}

func (f *fakeStore) SetStock(_ context.Context, id string, quantity int) error {
	if f.failSet[id] {
		return errors.New("write refused")
	}
	p, ok := f.packages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.stock = quantity
	return nil
}

func (f *fakeStore) ActiveLevels(_ context.Context) ([]domain.InventoryLevel, error) {
	var out []domain.InventoryLevel
	for _, p := range f.packages {
		out = append(out, *f.level(p))
	}
	return out, nil
}

func item(name string, qty int) domain.LineItem {
	return domain.LineItem{ProductName: name, ProductType: "total_essential", Quantity: qty}
}

func TestCheckAvailabilityReportsAllShortfalls(t *testing.T) {
	fs := newFakeStore(
		&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 3},
		&fakePackage{id: "p2", name: "beta", ptype: "total_essential", stock: 10},
	)
	r := New(fs, DefaultLowStockThreshold)

	ok, issues := r.CheckAvailability(context.Background(), []domain.LineItem{
		item("alpha", 5),
		item("beta", 2),
		item("gamma", 1),
	})
	if ok {
		t.Fatal("expected availability failure")
	}
	if len(issues) != 2 {
		t.Fatalf("expected both failing items reported, got %v", issues)
	}
	if !strings.Contains(issues[0], "alpha") || !strings.Contains(issues[0], "5 requested, 3 available") {
		t.Fatalf("shortfall not itemised: %v", issues)
	}
	if !strings.Contains(issues[1], "gamma") {
		t.Fatalf("missing product not reported: %v", issues)
	}
}

func TestCheckAvailabilityOK(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 5})
	r := New(fs, DefaultLowStockThreshold)

	ok, issues := r.CheckAvailability(context.Background(), []domain.LineItem{item("alpha", 5)})
	if !ok || len(issues) != 0 {
		t.Fatalf("expected available, got %v", issues)
	}
}

func TestApplyDecrement(t *testing.T) {
	fs := newFakeStore(
		&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 10},
		&fakePackage{id: "p2", name: "beta", ptype: "total_essential", stock: 4},
	)
	r := New(fs, DefaultLowStockThreshold)

	if ok := r.ApplyDecrement(context.Background(), []domain.LineItem{
		item("alpha", 3),
		item("beta", 1),
	}); !ok {
		t.Fatal("expected success")
	}
	if fs.packages["p1"].stock != 7 || fs.packages["p2"].stock != 3 {
		t.Fatalf("unexpected stock: p1=%d p2=%d", fs.packages["p1"].stock, fs.packages["p2"].stock)
	}
}

func TestApplyDecrementClampsAtZero(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 2})
	r := New(fs, DefaultLowStockThreshold)

	r.ApplyDecrement(context.Background(), []domain.LineItem{item("alpha", 9)})
	if fs.packages["p1"].stock != 0 {
		t.Fatalf("stock must clamp at 0, got %d", fs.packages["p1"].stock)
	}
}

func TestApplyDecrementPartialFailureContinues(t *testing.T) {
	fs := newFakeStore(
		&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 10},
		&fakePackage{id: "p2", name: "beta", ptype: "total_essential", stock: 10},
	)
	fs.failSet["p1"] = true
	r := New(fs, DefaultLowStockThreshold)

	ok := r.ApplyDecrement(context.Background(), []domain.LineItem{
		item("alpha", 2),
		item("beta", 2),
	})
	if !ok {
		t.Fatal("partial application still reports progress")
	}
	if fs.packages["p1"].stock != 10 {
		t.Fatalf("failed item must be skipped, got %d", fs.packages["p1"].stock)
	}
	if fs.packages["p2"].stock != 8 {
		t.Fatalf("remaining items must proceed, got %d", fs.packages["p2"].stock)
	}
}

func TestApplyDecrementUnknownProductSkipped(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 10})
	r := New(fs, DefaultLowStockThreshold)

	ok := r.ApplyDecrement(context.Background(), []domain.LineItem{
		item("ghost", 1),
		item("alpha", 1),
	})
	if !ok {
		t.Fatal("expected progress on known item")
	}
	if fs.packages["p1"].stock != 9 {
		t.Fatalf("known item must still be applied, got %d", fs.packages["p1"].stock)
	}
}

func TestBulkAdjust(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 10})
	r := New(fs, DefaultLowStockThreshold)
	ctx := context.Background()

	ops := []domain.StockOperation{
		{PackageID: "p1", Operation: domain.StockAdd, Quantity: 5},
	}
	if ok, errs := r.BulkAdjust(ctx, ops); !ok || len(errs) != 0 {
		t.Fatalf("add failed: %v", errs)
	}
	if fs.packages["p1"].stock != 15 {
		t.Fatalf("expected 15, got %d", fs.packages["p1"].stock)
	}

	ops = []domain.StockOperation{{PackageID: "p1", Operation: domain.StockSet, Quantity: 3}}
	r.BulkAdjust(ctx, ops)
	if fs.packages["p1"].stock != 3 {
		t.Fatalf("expected 3, got %d", fs.packages["p1"].stock)
	}
}

func TestBulkAdjustSubtractBeyondStock(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 3})
	r := New(fs, DefaultLowStockThreshold)

	ok, errs := r.BulkAdjust(context.Background(), []domain.StockOperation{
		{PackageID: "p1", Operation: domain.StockSubtract, Quantity: 10},
	})
	if !ok || len(errs) != 0 {
		t.Fatalf("oversubtract is clamped, not an error: %v", errs)
	}
	if fs.packages["p1"].stock != 0 {
		t.Fatalf("expected clamp to 0, got %d", fs.packages["p1"].stock)
	}
}

func TestBulkAdjustItemisedErrors(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 3})
	r := New(fs, DefaultLowStockThreshold)

	ok, errs := r.BulkAdjust(context.Background(), []domain.StockOperation{
		{PackageID: "missing", Operation: domain.StockAdd, Quantity: 1},
		{PackageID: "p1", Operation: "divide", Quantity: 1},
		{PackageID: "p1", Operation: domain.StockAdd, Quantity: 1},
	})
	if ok {
		t.Fatal("expected failure report")
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 itemised errors, got %v", errs)
	}
	if fs.packages["p1"].stock != 4 {
		t.Fatalf("valid op must still apply, got %d", fs.packages["p1"].stock)
	}
}

func TestNegativeSetClamps(t *testing.T) {
	fs := newFakeStore(&fakePackage{id: "p1", name: "alpha", ptype: "total_essential", stock: 3})
	r := New(fs, DefaultLowStockThreshold)

	r.BulkAdjust(context.Background(), []domain.StockOperation{
		{PackageID: "p1", Operation: domain.StockSet, Quantity: -7},
	})
	if fs.packages["p1"].stock != 0 {
		t.Fatalf("negative set must clamp to 0, got %d", fs.packages["p1"].stock)
	}
}
