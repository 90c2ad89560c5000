package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductType string

const (
	ProductTypeApparel ProductType = "apparel"
	ProductTypeOther   ProductType = "other"
)

func (t ProductType) Valid() bool {
	return t == ProductTypeApparel || t == ProductTypeOther
}

// SizeKind selects the label scheme for size-tracked products:
// "letter" (S, M, L...) or "number" (38, 40, 42...).
type SizeKind string

const (
	SizeKindLetter SizeKind = "letter"
	SizeKindNumber SizeKind = "number"
)

func (k SizeKind) Valid() bool {
	return k == SizeKindLetter || k == SizeKindNumber
}

type Product struct {
	BaseModel
	SKU      string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name     string           `gorm:"type:varchar(255);not null" json:"name"`
	Price    decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Cost     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cost,omitempty"`
	Category string           `gorm:"type:varchar(100);not null" json:"category"`

	ProductType ProductType `gorm:"type:varchar(20);not null;check:product_type = 'apparel' OR product_type = 'other'" json:"product_type"`
	Barcode     *string     `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty"`
	MinStock    int         `gorm:"not null;default:0" json:"min_stock"`

	// Stock is derived: for size-tracked products it must equal the sum of
	// variant quantities after every completed write.
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	SizeTracked bool      `gorm:"not null;default:false" json:"size_tracked"`
	SizeKind    *SizeKind `gorm:"type:varchar(10)" json:"size_kind,omitempty"`

	Variants []SizeVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

// SizeVariant is owned by exactly one Product. The variant set is replaced
// wholesale (never merged) on product updates that carry a variant list.
type SizeVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_variant_product_size" json:"product_id"`
	Size      string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_variant_product_size" json:"size"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
}

func (v *SizeVariant) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
