package repository

import (
	"errors"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RegisterRepository interface {
	// Open inserts the register and its synthetic opening movement in one
	// transaction. The partial unique index on open registers turns a lost
	// race into a uniqueness violation instead of a second open session.
	Open(register *model.CashRegister, opening *model.CashMovement) error

	FindOpenByUser(userID uuid.UUID) (*model.CashRegister, error)

	// Close sets the closing fields and flips the status in one guarded
	// update. Returns not-found when no row was still OPEN.
	Close(registerID uuid.UUID, closing model.RegisterClosing) error

	// AddMovement appends to the ledger after re-verifying, under a row
	// lock, that the register is still OPEN. Returns not-found when a close
	// committed between the caller's lookup and the append.
	AddMovement(movement *model.CashMovement) error

	// FindMovements returns a register's ledger newest-first.
	FindMovements(registerID uuid.UUID) ([]model.CashMovement, error)

	// FindClosedHistory returns closed registers newest-closed-first with
	// opener and closer users preloaded.
	FindClosedHistory() ([]model.CashRegister, error)

	// SumMovements returns inflows minus outflows for a register. The
	// opening movement seeds the opening balance into the sum.
	SumMovements(registerID uuid.UUID) (decimal.Decimal, error)
}

type registerRepo struct {
	db *gorm.DB
}

func NewRegisterRepo(db *gorm.DB) RegisterRepository {
	return &registerRepo{db}
}

func (r *registerRepo) Open(register *model.CashRegister, opening *model.CashMovement) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(register).Error; err != nil {
			return err
		}
		opening.RegisterID = register.ID
		return tx.Create(opening).Error
	})
	return apperr.Classify(err)
}

func (r *registerRepo) FindOpenByUser(userID uuid.UUID) (*model.CashRegister, error) {
	var register model.CashRegister
	err := r.db.
		Where("user_id = ? AND status = ?", userID, model.RegisterOpen).
		First(&register).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return &register, nil
}

func (r *registerRepo) Close(registerID uuid.UUID, closing model.RegisterClosing) error {
	res := r.db.Model(&model.CashRegister{}).
		Where("id = ? AND status = ?", registerID, model.RegisterOpen).
		Updates(map[string]interface{}{
			"status":            model.RegisterClosed,
			"closing_balance":   closing.ClosingBalance,
			"expected_balance":  closing.ExpectedBalance,
			"difference":        closing.Difference,
			"closed_at":         closing.ClosedAt,
			"closed_by_user_id": closing.ClosedByUserID,
		})
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "register is not open")
	}
	return nil
}

func (r *registerRepo) AddMovement(movement *model.CashMovement) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var register model.CashRegister
		err := lockForUpdate(tx).
			First(&register, "id = ? AND status = ?", movement.RegisterID, model.RegisterOpen).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "register is not open")
			}
			return apperr.Classify(err)
		}
		return tx.Create(movement).Error
	})
	return apperr.Classify(err)
}

func (r *registerRepo) FindMovements(registerID uuid.UUID) ([]model.CashMovement, error) {
	var movements []model.CashMovement
	err := r.db.
		Where("register_id = ?", registerID).
		Order("created_at DESC").
		Find(&movements).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return movements, nil
}

func (r *registerRepo) FindClosedHistory() ([]model.CashRegister, error) {
	var registers []model.CashRegister
	err := r.db.
		Preload("User").
		Preload("ClosedByUser").
		Where("status = ?", model.RegisterClosed).
		Order("closed_at DESC").
		Find(&registers).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return registers, nil
}

func (r *registerRepo) SumMovements(registerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Raw(`
		SELECT COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0)
		FROM cash_movements
		WHERE register_id = ?`, model.MovementInflow, registerID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, apperr.Classify(err)
	}
	return total, nil
}
