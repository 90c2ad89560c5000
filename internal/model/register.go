package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RegisterStatus string

const (
	RegisterOpen   RegisterStatus = "OPEN"
	RegisterClosed RegisterStatus = "CLOSED"
)

type MovementType string

const (
	MovementInflow  MovementType = "INFLOW"
	MovementOutflow MovementType = "OUTFLOW"
)

func (t MovementType) Valid() bool {
	return t == MovementInflow || t == MovementOutflow
}

// CashRegister is one cash-handling session. CLOSED is terminal: a closed
// register is never reopened or mutated, a new session is a new row.
// The partial unique index on user_id backs the single-open-per-user rule
// even when two open requests interleave.
type CashRegister struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_register_open_user,unique,where:status = 'OPEN'" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	OpeningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"opening_balance"`
	Status         RegisterStatus  `gorm:"type:varchar(10);not null;default:'OPEN';check:status = 'OPEN' OR status = 'CLOSED'" json:"status"`
	OpenedAt       time.Time       `gorm:"not null" json:"opened_at"`

	// Set only when Status is CLOSED, all in a single write.
	ClosingBalance  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"closing_balance,omitempty"`
	ExpectedBalance *decimal.Decimal `gorm:"type:decimal(12,2)" json:"expected_balance,omitempty"`
	Difference      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"difference,omitempty"`
	ClosedAt        *time.Time       `json:"closed_at,omitempty"`
	ClosedByUserID  *uuid.UUID       `gorm:"type:uuid" json:"closed_by_user_id,omitempty"`
	ClosedByUser    *User            `gorm:"foreignKey:ClosedByUserID" json:"closed_by_user,omitempty"`

	Movements []CashMovement `gorm:"foreignKey:RegisterID" json:"movements,omitempty"`
}

func (CashRegister) TableName() string {
	return "cash_registers"
}

// RegisterClosing carries the fields set atomically when a register closes.
type RegisterClosing struct {
	ClosingBalance  decimal.Decimal
	ExpectedBalance decimal.Decimal
	Difference      decimal.Decimal
	ClosedAt        time.Time
	ClosedByUserID  uuid.UUID
}

// CashMovement is an append-only entry in a register's ledger. Movements are
// never mutated or deleted; corrections are new inverse entries.
type CashMovement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	RegisterID uuid.UUID       `gorm:"type:uuid;not null;index" json:"register_id"`
	Type       MovementType    `gorm:"type:varchar(10);not null;check:type = 'INFLOW' OR type = 'OUTFLOW'" json:"type"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Concept    string          `gorm:"type:varchar(255);not null" json:"concept"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (m *CashMovement) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

// RegisterHistoryEntry is a closed register annotated with the display names
// of the users who opened and closed it.
type RegisterHistoryEntry struct {
	ID              uuid.UUID        `json:"id"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	ClosingBalance  *decimal.Decimal `json:"closing_balance"`
	ExpectedBalance *decimal.Decimal `json:"expected_balance"`
	Difference      *decimal.Decimal `json:"difference"`
	OpenedAt        time.Time        `json:"opened_at"`
	ClosedAt        *time.Time       `json:"closed_at"`
	OpenedBy        string           `json:"opened_by"`
	ClosedBy        string           `json:"closed_by"`
}

// ToHistoryEntry flattens a closed register for the history listing.
func (r *CashRegister) ToHistoryEntry() RegisterHistoryEntry {
	entry := RegisterHistoryEntry{
		ID:              r.ID,
		OpeningBalance:  r.OpeningBalance,
		ClosingBalance:  r.ClosingBalance,
		ExpectedBalance: r.ExpectedBalance,
		Difference:      r.Difference,
		OpenedAt:        r.OpenedAt,
		ClosedAt:        r.ClosedAt,
	}
	if r.User != nil {
		entry.OpenedBy = r.User.FullName
	}
	if r.ClosedByUser != nil {
		entry.ClosedBy = r.ClosedByUser.FullName
	}
	return entry
}
