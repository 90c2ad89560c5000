package repository

import (
	"errors"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductSizeTracked    = apperr.New(apperr.KindValidation, "stock of a size-tracked product can only change through its size variants")
	ErrProductNotSizeTracked = apperr.New(apperr.KindValidation, "product is not size-tracked")
	ErrVariantNotFound       = apperr.New(apperr.KindNotFound, "size variant not found")
	ErrStockBelowZero        = apperr.New(apperr.KindValidation, "adjustment would drive stock below zero")
)

type ProductRepository interface {
	Create(product *model.Product) error
	Update(product *model.Product, variants []model.SizeVariant) error
	FindAll() ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindBySKU(sku string) (*model.Product, error)

	// AdjustStock applies a delta to a non-size-tracked product's aggregate.
	// The size-tracked guard is enforced in the UPDATE predicate itself.
	AdjustStock(id uuid.UUID, delta int, policy model.StockPolicy) (*model.Product, error)

	// AdjustVariantStock applies a delta to one variant, then re-reads the
	// variant sum and overwrites the aggregate, all in one transaction with
	// the product row locked.
	AdjustVariantStock(productID uuid.UUID, size string, delta int, policy model.StockPolicy) (*model.Product, error)

	// FindSizeTrackedWithoutVariants lists products whose size-tracked flag
	// has no matching variant rows (interrupted create/update writes).
	FindSizeTrackedWithoutVariants() ([]model.Product, error)

	// RecomputeAggregates overwrites drifted aggregates from variant sums
	// and reports how many rows were corrected.
	RecomputeAggregates() (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// lockForUpdate takes a pessimistic row lock held until the surrounding
// transaction commits.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Create persists the product row and its variant rows in one transaction so
// a crash cannot leave a size-tracked product without variants.
func (r *productRepo) Create(product *model.Product) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(product).Error
	})
	return apperr.Classify(err)
}

// Update overwrites the product row, unconditionally deletes its variants and
// re-inserts the supplied list (full replace, not merge), atomically.
func (r *productRepo) Update(product *model.Product, variants []model.SizeVariant) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(product).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.SizeVariant{}).Error; err != nil {
			return err
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		product.Variants = variants
		return nil
	})
	return apperr.Classify(err)
}

func (r *productRepo) FindAll() ([]model.Product, error) {
	var products []model.Product
	err := r.db.Preload("Variants").Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return products, nil
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Variants").First(&product, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, "sku = ?", sku).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &product, nil
}

func (r *productRepo) AdjustStock(id uuid.UUID, delta int, policy model.StockPolicy) (*model.Product, error) {
	var updated model.Product
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := lockForUpdate(tx).First(&product, "id = ?", id).Error; err != nil {
			return apperr.Classify(err)
		}
		if product.SizeTracked {
			return ErrProductSizeTracked
		}
		next, ok := policy.Apply(product.Stock, delta)
		if !ok {
			return ErrStockBelowZero
		}
		// The predicate repeats the guard at the storage layer.
		res := tx.Model(&model.Product{}).
			Where("id = ? AND size_tracked = false", id).
			Update("stock", next)
		if res.Error != nil {
			return apperr.Classify(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrProductSizeTracked
		}
		product.Stock = next
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *productRepo) AdjustVariantStock(productID uuid.UUID, size string, delta int, policy model.StockPolicy) (*model.Product, error) {
	var updated model.Product
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Lock the parent row so concurrent variant writes for the same
		// product serialize around the aggregate recompute.
		var product model.Product
		if err := lockForUpdate(tx).First(&product, "id = ?", productID).Error; err != nil {
			return apperr.Classify(err)
		}
		if !product.SizeTracked {
			return ErrProductNotSizeTracked
		}

		var variant model.SizeVariant
		if err := tx.First(&variant, "product_id = ? AND size = ?", productID, size).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVariantNotFound
			}
			return apperr.Classify(err)
		}
		next, ok := policy.Apply(variant.Quantity, delta)
		if !ok {
			return ErrStockBelowZero
		}
		if err := tx.Model(&model.SizeVariant{}).Where("id = ?", variant.ID).Update("quantity", next).Error; err != nil {
			return apperr.Classify(err)
		}

		// Canonical reconciliation: re-read the sum, overwrite the aggregate.
		var total int64
		if err := tx.Model(&model.SizeVariant{}).
			Where("product_id = ?", productID).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&total).Error; err != nil {
			return apperr.Classify(err)
		}
		if err := tx.Model(&model.Product{}).Where("id = ?", productID).Update("stock", total).Error; err != nil {
			return apperr.Classify(err)
		}

		if err := tx.Preload("Variants").First(&updated, "id = ?", productID).Error; err != nil {
			return apperr.Classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *productRepo) FindSizeTrackedWithoutVariants() ([]model.Product, error) {
	var products []model.Product
	err := r.db.
		Where("size_tracked = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM size_variants WHERE size_variants.product_id = products.id)").
		Find(&products).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return products, nil
}

func (r *productRepo) RecomputeAggregates() (int64, error) {
	res := r.db.Exec(`
		UPDATE products SET stock = sub.total
		FROM (
			SELECT product_id, SUM(quantity) AS total
			FROM size_variants
			GROUP BY product_id
		) AS sub
		WHERE products.id = sub.product_id
		  AND products.size_tracked = true
		  AND products.stock <> sub.total`)
	if res.Error != nil {
		return 0, apperr.Classify(res.Error)
	}
	return res.RowsAffected, nil
}
