package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/repository"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingRequiredFields = apperr.New(apperr.KindValidation, "missing required fields")
	ErrInvalidProductType    = apperr.New(apperr.KindValidation, "invalid product type")
	ErrInvalidPrice          = apperr.New(apperr.KindValidation, "invalid price")
	ErrInvalidCost           = apperr.New(apperr.KindValidation, "invalid cost")
	ErrInvalidSizeKind       = apperr.New(apperr.KindValidation, "invalid size kind")
	ErrDuplicateSKU          = apperr.New(apperr.KindConflict, "sku already exists")
	ErrProductNotFound       = apperr.New(apperr.KindNotFound, "product not found")
)

// ProductInput carries raw candidate fields. Price, cost and quantities are
// untyped on purpose: clients send them as numbers or strings and the
// validation layer decides what parses.
type ProductInput struct {
	SKU         string         `json:"sku"`
	Name        string         `json:"name"`
	Price       interface{}    `json:"price"`
	Cost        interface{}    `json:"cost"`
	Category    string         `json:"category"`
	ProductType string         `json:"product_type"`
	Barcode     *string        `json:"barcode"`
	MinStock    int            `json:"min_stock"`
	Stock       interface{}    `json:"stock"`
	SizeTracked bool           `json:"size_tracked"`
	SizeKind    string         `json:"size_kind"`
	Variants    []VariantInput `json:"variants"`
}

type VariantInput struct {
	Size     string      `json:"size"`
	Quantity interface{} `json:"quantity"`
}

type ProductService interface {
	CreateProduct(in *ProductInput) (*model.Product, error)
	UpdateProduct(id uuid.UUID, in *ProductInput) (*model.Product, error)
	AdjustStock(id uuid.UUID, delta int) (*model.Product, error)
	AdjustStockBySize(id uuid.UUID, size string, delta int) (*model.Product, error)
	GetProduct(id uuid.UUID) (*model.Product, error)
	GetAllProducts() ([]model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
	wsHub       *ws.Hub
	policy      model.StockPolicy
}

func NewProductService(productRepo repository.ProductRepository, hub *ws.Hub, policy model.StockPolicy) ProductService {
	return &productService{
		productRepo: productRepo,
		wsHub:       hub,
		policy:      policy,
	}
}

// ValidateProduct applies the business rules in their fixed precedence:
// required fields, then product type, then price, then cost, then size kind.
// It never touches storage.
func ValidateProduct(in *ProductInput) (decimal.Decimal, *decimal.Decimal, error) {
	if in.Name == "" || in.SKU == "" || in.Category == "" || in.ProductType == "" || !supplied(in.Price) {
		return decimal.Zero, nil, ErrMissingRequiredFields
	}
	if !model.ProductType(in.ProductType).Valid() {
		return decimal.Zero, nil, ErrInvalidProductType
	}
	price, ok := parseAmount(in.Price)
	if !ok || !price.IsPositive() {
		return decimal.Zero, nil, ErrInvalidPrice
	}
	var cost *decimal.Decimal
	if supplied(in.Cost) {
		parsed, ok := parseAmount(in.Cost)
		if !ok || parsed.IsNegative() {
			return decimal.Zero, nil, ErrInvalidCost
		}
		cost = &parsed
	}
	if in.SizeTracked {
		if !model.SizeKind(in.SizeKind).Valid() {
			return decimal.Zero, nil, ErrInvalidSizeKind
		}
	} else if in.SizeKind != "" {
		return decimal.Zero, nil, ErrInvalidSizeKind
	}
	return price, cost, nil
}

// supplied reports whether an optional raw field was actually sent.
func supplied(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		return true
	}
}

func parseAmount(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	case decimal.Decimal:
		return val, true
	default:
		return decimal.Zero, false
	}
}

// coerceQuantity keeps the permissive legacy behavior: a quantity that does
// not parse as a number contributes zero instead of failing the operation.
func coerceQuantity(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
		return 0
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

// computeTotalStock derives the aggregate: the variant sum for size-tracked
// products with variants, the fallback otherwise.
func computeTotalStock(sizeTracked bool, variants []VariantInput, fallback int) int {
	if !sizeTracked || len(variants) == 0 {
		return fallback
	}
	total := 0
	for _, v := range variants {
		total += coerceQuantity(v.Quantity)
	}
	return total
}

func (s *productService) CreateProduct(in *ProductInput) (*model.Product, error) {
	price, cost, err := ValidateProduct(in)
	if err != nil {
		return nil, err
	}

	if existing, err := s.productRepo.FindBySKU(in.SKU); err == nil && existing != nil {
		return nil, ErrDuplicateSKU
	}

	product := &model.Product{
		SKU:         in.SKU,
		Name:        in.Name,
		Price:       price,
		Cost:        cost,
		Category:    in.Category,
		ProductType: model.ProductType(in.ProductType),
		Barcode:     in.Barcode,
		MinStock:    in.MinStock,
		Stock:       computeTotalStock(in.SizeTracked, in.Variants, coerceQuantity(in.Stock)),
		SizeTracked: in.SizeTracked,
	}
	if in.SizeTracked {
		kind := model.SizeKind(in.SizeKind)
		product.SizeKind = &kind
		product.Variants = buildVariants(uuid.Nil, in.Variants)
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	s.publish("product_created", product)
	return product, nil
}

func (s *productService) UpdateProduct(id uuid.UUID, in *ProductInput) (*model.Product, error) {
	price, cost, err := ValidateProduct(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if in.SKU != existing.SKU {
		if other, err := s.productRepo.FindBySKU(in.SKU); err == nil && other != nil && other.ID != existing.ID {
			return nil, ErrDuplicateSKU
		}
	}

	existing.SKU = in.SKU
	existing.Name = in.Name
	existing.Price = price
	existing.Cost = cost
	existing.Category = in.Category
	existing.ProductType = model.ProductType(in.ProductType)
	existing.Barcode = in.Barcode
	existing.MinStock = in.MinStock
	existing.SizeTracked = in.SizeTracked
	existing.Stock = computeTotalStock(in.SizeTracked, in.Variants, coerceQuantity(in.Stock))

	var variants []model.SizeVariant
	if in.SizeTracked {
		kind := model.SizeKind(in.SizeKind)
		existing.SizeKind = &kind
		variants = buildVariants(existing.ID, in.Variants)
	} else {
		existing.SizeKind = nil
	}

	if err := s.productRepo.Update(existing, variants); err != nil {
		return nil, err
	}

	s.publish("product_updated", existing)
	return existing, nil
}

func (s *productService) AdjustStock(id uuid.UUID, delta int) (*model.Product, error) {
	product, err := s.productRepo.AdjustStock(id, delta, s.policy)
	if err != nil {
		return nil, err
	}
	s.publishStock(product)
	return product, nil
}

func (s *productService) AdjustStockBySize(id uuid.UUID, size string, delta int) (*model.Product, error) {
	product, err := s.productRepo.AdjustVariantStock(id, size, delta, s.policy)
	if err != nil {
		return nil, err
	}
	s.publishStock(product)
	return product, nil
}

func (s *productService) GetProduct(id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func buildVariants(productID uuid.UUID, inputs []VariantInput) []model.SizeVariant {
	if len(inputs) == 0 {
		return nil
	}
	variants := make([]model.SizeVariant, 0, len(inputs))
	for _, in := range inputs {
		variants = append(variants, model.SizeVariant{
			ProductID: productID,
			Size:      in.Size,
			Quantity:  coerceQuantity(in.Quantity),
		})
	}
	return variants
}

func (s *productService) publish(event string, product *model.Product) {
	if s.wsHub == nil {
		return
	}
	go s.wsHub.Publish(event, product)
}

func (s *productService) publishStock(product *model.Product) {
	if s.wsHub == nil {
		return
	}
	go s.wsHub.Publish("stock_update", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"stock":      product.Stock,
		"min_stock":  product.MinStock,
	})
}
