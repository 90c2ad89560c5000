package service

import (
	"testing"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductRepo mirrors the storage contract in memory, including the
// size-tracked guard and the variant-sum reconciliation.
type fakeProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (f *fakeProductRepo) Create(product *model.Product) error {
	for _, p := range f.products {
		if p.SKU == product.SKU {
			return apperr.New(apperr.KindConflict, "duplicate value for unique field")
		}
	}
	product.ID = uuid.New()
	for i := range product.Variants {
		product.Variants[i].ID = uuid.New()
		product.Variants[i].ProductID = product.ID
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) Update(product *model.Product, variants []model.SizeVariant) error {
	if _, ok := f.products[product.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "record not found")
	}
	for i := range variants {
		variants[i].ID = uuid.New()
		variants[i].ProductID = product.ID
	}
	product.Variants = variants
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) FindAll() ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProductRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "record not found")
	}
	return p, nil
}

func (f *fakeProductRepo) FindBySKU(sku string) (*model.Product, error) {
	for _, p := range f.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "record not found")
}

func (f *fakeProductRepo) AdjustStock(id uuid.UUID, delta int, policy model.StockPolicy) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "record not found")
	}
	if p.SizeTracked {
		return nil, repository.ErrProductSizeTracked
	}
	next, ok := policy.Apply(p.Stock, delta)
	if !ok {
		return nil, repository.ErrStockBelowZero
	}
	p.Stock = next
	return p, nil
}

func (f *fakeProductRepo) AdjustVariantStock(productID uuid.UUID, size string, delta int, policy model.StockPolicy) (*model.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "record not found")
	}
	if !p.SizeTracked {
		return nil, repository.ErrProductNotSizeTracked
	}
	idx := -1
	for i := range p.Variants {
		if p.Variants[i].Size == size {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, repository.ErrVariantNotFound
	}
	next, ok := policy.Apply(p.Variants[idx].Quantity, delta)
	if !ok {
		return nil, repository.ErrStockBelowZero
	}
	p.Variants[idx].Quantity = next
	total := 0
	for _, v := range p.Variants {
		total += v.Quantity
	}
	p.Stock = total
	return p, nil
}

func (f *fakeProductRepo) FindSizeTrackedWithoutVariants() ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if p.SizeTracked && len(p.Variants) == 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) RecomputeAggregates() (int64, error) {
	var fixed int64
	for _, p := range f.products {
		if !p.SizeTracked {
			continue
		}
		total := 0
		for _, v := range p.Variants {
			total += v.Quantity
		}
		if p.Stock != total {
			p.Stock = total
			fixed++
		}
	}
	return fixed, nil
}

func newTestProductService(policy model.StockPolicy) (ProductService, *fakeProductRepo) {
	repo := newFakeProductRepo()
	return NewProductService(repo, nil, policy), repo
}

func validInput() *ProductInput {
	return &ProductInput{
		SKU:         "TSH-001",
		Name:        "Basic Tee",
		Price:       19.90,
		Category:    "shirts",
		ProductType: "apparel",
	}
}

func TestValidateProductRulePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProductInput)
		want   error
	}{
		{"missing name", func(in *ProductInput) { in.Name = "" }, ErrMissingRequiredFields},
		{"missing sku", func(in *ProductInput) { in.SKU = "" }, ErrMissingRequiredFields},
		{"missing price", func(in *ProductInput) { in.Price = nil }, ErrMissingRequiredFields},
		{"empty string price", func(in *ProductInput) { in.Price = "" }, ErrMissingRequiredFields},
		{"missing category", func(in *ProductInput) { in.Category = "" }, ErrMissingRequiredFields},
		{"missing product type", func(in *ProductInput) { in.ProductType = "" }, ErrMissingRequiredFields},
		// required-field check wins over the type check
		{"missing name and bad type", func(in *ProductInput) { in.Name = ""; in.ProductType = "food" }, ErrMissingRequiredFields},
		{"unknown product type", func(in *ProductInput) { in.ProductType = "food" }, ErrInvalidProductType},
		// type check wins over the price check
		{"bad type and bad price", func(in *ProductInput) { in.ProductType = "food"; in.Price = "abc" }, ErrInvalidProductType},
		{"unparseable price", func(in *ProductInput) { in.Price = "abc" }, ErrInvalidPrice},
		{"zero price", func(in *ProductInput) { in.Price = 0.0 }, ErrInvalidPrice},
		{"negative price", func(in *ProductInput) { in.Price = -5.0 }, ErrInvalidPrice},
		{"unparseable cost", func(in *ProductInput) { in.Cost = "abc" }, ErrInvalidCost},
		{"negative cost", func(in *ProductInput) { in.Cost = -1.0 }, ErrInvalidCost},
		{"size tracked without kind", func(in *ProductInput) { in.SizeTracked = true }, ErrInvalidSizeKind},
		{"size tracked with bad kind", func(in *ProductInput) { in.SizeTracked = true; in.SizeKind = "roman" }, ErrInvalidSizeKind},
		{"size kind without tracking", func(in *ProductInput) { in.SizeKind = "letter" }, ErrInvalidSizeKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, _, err := ValidateProduct(in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateProductAccepts(t *testing.T) {
	in := validInput()
	in.Price = "19.90"
	in.Cost = "8.50"
	price, cost, err := ValidateProduct(in)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("19.90")))
	require.NotNil(t, cost)
	assert.True(t, cost.Equal(decimal.RequireFromString("8.50")))

	// zero cost is valid, absent cost stays nil
	in = validInput()
	in.Cost = 0.0
	_, cost, err = ValidateProduct(in)
	require.NoError(t, err)
	require.NotNil(t, cost)
	assert.True(t, cost.IsZero())

	in = validInput()
	_, cost, err = ValidateProduct(in)
	require.NoError(t, err)
	assert.Nil(t, cost)
}

func TestCreateProductDerivesStockFromVariants(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Stock = 99 // ignored: the variant sum wins
	in.Variants = []VariantInput{{Size: "S", Quantity: 3.0}, {Size: "M", Quantity: 5.0}}

	product, err := svc.CreateProduct(in)
	require.NoError(t, err)
	assert.Equal(t, 8, product.Stock)
	require.Len(t, product.Variants, 2)
	for _, v := range product.Variants {
		assert.Equal(t, product.ID, v.ProductID)
	}
	require.NotNil(t, product.SizeKind)
	assert.Equal(t, model.SizeKindLetter, *product.SizeKind)
}

func TestCreateProductFallbackStock(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.Stock = 7.0
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)
	assert.Equal(t, 7, product.Stock)

	in = validInput()
	in.SKU = "TSH-002"
	in.Stock = "12"
	product, err = svc.CreateProduct(in)
	require.NoError(t, err)
	assert.Equal(t, 12, product.Stock)

	// missing stock is zero
	in = validInput()
	in.SKU = "TSH-003"
	product, err = svc.CreateProduct(in)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}

func TestCreateProductMalformedQuantityContributesZero(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{
		{Size: "S", Quantity: "abc"},
		{Size: "M", Quantity: 5.0},
		{Size: "L", Quantity: nil},
	}

	product, err := svc.CreateProduct(in)
	require.NoError(t, err)
	assert.Equal(t, 5, product.Stock)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	_, err := svc.CreateProduct(validInput())
	require.NoError(t, err)

	_, err = svc.CreateProduct(validInput())
	assert.ErrorIs(t, err, ErrDuplicateSKU)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateProductReplacesVariants(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{{Size: "S", Quantity: 3.0}, {Size: "M", Quantity: 5.0}}
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)
	require.Equal(t, 8, product.Stock)

	in.Variants = []VariantInput{{Size: "S", Quantity: 0.0}, {Size: "L", Quantity: 2.0}}
	updated, err := svc.UpdateProduct(product.ID, in)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Stock)
	sizes := make([]string, 0, len(updated.Variants))
	for _, v := range updated.Variants {
		sizes = append(sizes, v.Size)
	}
	assert.ElementsMatch(t, []string{"S", "L"}, sizes)
	assert.NotContains(t, sizes, "M")
}

func TestUpdateProductClearsVariantsWhenNotTracked(t *testing.T) {
	svc, repo := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{{Size: "S", Quantity: 3.0}}
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	in.SizeTracked = false
	in.SizeKind = ""
	in.Variants = nil
	in.Stock = 4.0
	updated, err := svc.UpdateProduct(product.ID, in)
	require.NoError(t, err)

	assert.False(t, updated.SizeTracked)
	assert.Nil(t, updated.SizeKind)
	assert.Empty(t, updated.Variants)
	assert.Equal(t, 4, updated.Stock)

	stored, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Variants)
}

func TestUpdateProductNotFound(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)
	_, err := svc.UpdateProduct(uuid.New(), validInput())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAdjustStockChangesByExactDelta(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.Stock = 10.0
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	updated, err := svc.AdjustStock(product.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Stock)

	updated, err = svc.AdjustStock(product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)
}

func TestAdjustStockRefusesSizeTrackedProduct(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{{Size: "S", Quantity: 3.0}}
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	_, err = svc.AdjustStock(product.ID, 1)
	assert.ErrorIs(t, err, repository.ErrProductSizeTracked)

	// stock untouched
	stored, _ := svc.GetProduct(product.ID)
	assert.Equal(t, 3, stored.Stock)
}

func TestAdjustStockBySizeReconcilesAggregate(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{{Size: "S", Quantity: 3.0}, {Size: "M", Quantity: 5.0}}
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	updated, err := svc.AdjustStockBySize(product.ID, "M", -2)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Stock)

	for _, v := range updated.Variants {
		if v.Size == "M" {
			assert.Equal(t, 3, v.Quantity)
		}
	}
}

func TestAdjustStockBySizeErrors(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	plain := validInput()
	product, err := svc.CreateProduct(plain)
	require.NoError(t, err)

	_, err = svc.AdjustStockBySize(product.ID, "S", 1)
	assert.ErrorIs(t, err, repository.ErrProductNotSizeTracked)

	tracked := validInput()
	tracked.SKU = "TSH-002"
	tracked.SizeTracked = true
	tracked.SizeKind = "letter"
	tracked.Variants = []VariantInput{{Size: "S", Quantity: 3.0}}
	trackedProduct, err := svc.CreateProduct(tracked)
	require.NoError(t, err)

	_, err = svc.AdjustStockBySize(trackedProduct.ID, "XL", 1)
	assert.ErrorIs(t, err, repository.ErrVariantNotFound)
}

func TestStockPolicyRejectBlocksOversell(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyReject)

	in := validInput()
	in.Stock = 2.0
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	_, err = svc.AdjustStock(product.ID, -5)
	assert.ErrorIs(t, err, repository.ErrStockBelowZero)

	stored, _ := svc.GetProduct(product.ID)
	assert.Equal(t, 2, stored.Stock)
}

func TestStockPolicyClampFloorsAtZero(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyClamp)

	in := validInput()
	in.SizeTracked = true
	in.SizeKind = "letter"
	in.Variants = []VariantInput{{Size: "S", Quantity: 2.0}, {Size: "M", Quantity: 4.0}}
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	updated, err := svc.AdjustStockBySize(product.ID, "S", -5)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)
}

func TestStockPolicyAllowPermitsNegative(t *testing.T) {
	svc, _ := newTestProductService(model.StockPolicyAllow)

	in := validInput()
	in.Stock = 2.0
	product, err := svc.CreateProduct(in)
	require.NoError(t, err)

	updated, err := svc.AdjustStock(product.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, -3, updated.Stock)
}

func TestCoerceQuantity(t *testing.T) {
	assert.Equal(t, 5, coerceQuantity(5.0))
	assert.Equal(t, 5, coerceQuantity(5))
	assert.Equal(t, 5, coerceQuantity("5"))
	assert.Equal(t, 5, coerceQuantity(" 5 "))
	assert.Equal(t, 5, coerceQuantity("5.9"))
	assert.Equal(t, 0, coerceQuantity("abc"))
	assert.Equal(t, 0, coerceQuantity(nil))
	assert.Equal(t, 0, coerceQuantity(true))
	assert.Equal(t, -2, coerceQuantity(-2.0))
}

func TestComputeTotalStock(t *testing.T) {
	variants := []VariantInput{{Size: "S", Quantity: 3.0}, {Size: "M", Quantity: 5.0}}

	assert.Equal(t, 8, computeTotalStock(true, variants, 99))
	assert.Equal(t, 99, computeTotalStock(false, variants, 99))
	assert.Equal(t, 99, computeTotalStock(true, nil, 99))
	assert.Equal(t, 0, computeTotalStock(true, nil, 0))
}
