package service

import (
	"time"

	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/repository"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRegisterAlreadyOpen    = apperr.New(apperr.KindConflict, "user already has an open register")
	ErrNoOpenRegister         = apperr.New(apperr.KindNotFound, "no open register for user")
	ErrInvalidMovementType    = apperr.New(apperr.KindValidation, "invalid movement type")
	ErrInvalidMovementAmount  = apperr.New(apperr.KindValidation, "movement amount must be greater than zero")
	ErrNegativeOpeningBalance = apperr.New(apperr.KindValidation, "opening balance cannot be negative")
)

// openingConcept labels the synthetic inflow that seeds the opening balance.
const openingConcept = "register opened"

// Differences under one cent count as exact.
var exactBalanceTolerance = decimal.New(1, -2)

// IsExactBalance reports whether a closing difference is small enough to not
// flag for review.
func IsExactBalance(difference decimal.Decimal) bool {
	return difference.Abs().LessThan(exactBalanceTolerance)
}

type RegisterService interface {
	Open(userID uuid.UUID, openingBalance decimal.Decimal) (*model.CashRegister, error)
	Close(userID uuid.UUID, closingBalance, expectedBalance decimal.Decimal, closedBy uuid.UUID) (*model.CashRegister, error)
	AddMovement(userID uuid.UUID, movementType model.MovementType, amount decimal.Decimal, concept string) (*model.CashMovement, error)
	Movements(userID uuid.UUID) ([]model.CashMovement, error)
	History() ([]model.RegisterHistoryEntry, error)
	ExpectedFromLedger(userID uuid.UUID) (decimal.Decimal, error)
}

type registerService struct {
	registerRepo repository.RegisterRepository
	wsHub        *ws.Hub
}

func NewRegisterService(registerRepo repository.RegisterRepository, hub *ws.Hub) RegisterService {
	return &registerService{
		registerRepo: registerRepo,
		wsHub:        hub,
	}
}

func (s *registerService) Open(userID uuid.UUID, openingBalance decimal.Decimal) (*model.CashRegister, error) {
	if openingBalance.IsNegative() {
		return nil, ErrNegativeOpeningBalance
	}

	if _, err := s.registerRepo.FindOpenByUser(userID); err == nil {
		return nil, ErrRegisterAlreadyOpen
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	register := &model.CashRegister{
		UserID:         userID,
		OpeningBalance: openingBalance,
		Status:         model.RegisterOpen,
		OpenedAt:       time.Now(),
	}
	opening := &model.CashMovement{
		Type:    model.MovementInflow,
		Amount:  openingBalance,
		Concept: openingConcept,
	}
	if err := s.registerRepo.Open(register, opening); err != nil {
		// The partial unique index catches the race the pre-check leaves open.
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, ErrRegisterAlreadyOpen
		}
		return nil, err
	}

	s.publish("register_opened", map[string]interface{}{
		"register_id":     register.ID,
		"user_id":         userID,
		"opening_balance": openingBalance,
	})
	return register, nil
}

func (s *registerService) Close(userID uuid.UUID, closingBalance, expectedBalance decimal.Decimal, closedBy uuid.UUID) (*model.CashRegister, error) {
	register, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrNoOpenRegister
		}
		return nil, err
	}

	difference := closingBalance.Sub(expectedBalance)
	now := time.Now()
	closing := model.RegisterClosing{
		ClosingBalance:  closingBalance,
		ExpectedBalance: expectedBalance,
		Difference:      difference,
		ClosedAt:        now,
		ClosedByUserID:  closedBy,
	}
	if err := s.registerRepo.Close(register.ID, closing); err != nil {
		// A concurrent close got there first; the register is no longer open.
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrNoOpenRegister
		}
		return nil, err
	}

	register.Status = model.RegisterClosed
	register.ClosingBalance = &closingBalance
	register.ExpectedBalance = &expectedBalance
	register.Difference = &difference
	register.ClosedAt = &now
	register.ClosedByUserID = &closedBy

	s.publish("register_closed", map[string]interface{}{
		"register_id": register.ID,
		"user_id":     userID,
		"difference":  difference,
		"exact":       IsExactBalance(difference),
	})
	return register, nil
}

func (s *registerService) AddMovement(userID uuid.UUID, movementType model.MovementType, amount decimal.Decimal, concept string) (*model.CashMovement, error) {
	if !movementType.Valid() {
		return nil, ErrInvalidMovementType
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidMovementAmount
	}

	register, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrNoOpenRegister
		}
		return nil, err
	}

	movement := &model.CashMovement{
		RegisterID: register.ID,
		Type:       movementType,
		Amount:     amount,
		Concept:    concept,
	}
	if err := s.registerRepo.AddMovement(movement); err != nil {
		// A concurrent close landed between the lookup and the append.
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrNoOpenRegister
		}
		return nil, err
	}
	return movement, nil
}

// Movements lists the open register's ledger newest-first. No open register
// is not an error here: callers get an empty list.
func (s *registerService) Movements(userID uuid.UUID) ([]model.CashMovement, error) {
	register, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return []model.CashMovement{}, nil
		}
		return nil, err
	}
	return s.registerRepo.FindMovements(register.ID)
}

func (s *registerService) History() ([]model.RegisterHistoryEntry, error) {
	registers, err := s.registerRepo.FindClosedHistory()
	if err != nil {
		return nil, err
	}
	entries := make([]model.RegisterHistoryEntry, len(registers))
	for i := range registers {
		entries[i] = registers[i].ToHistoryEntry()
	}
	return entries, nil
}

// ExpectedFromLedger re-derives the cash the open register should hold:
// inflows minus outflows, with the opening movement carrying the seed.
func (s *registerService) ExpectedFromLedger(userID uuid.UUID) (decimal.Decimal, error) {
	register, err := s.registerRepo.FindOpenByUser(userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return decimal.Zero, ErrNoOpenRegister
		}
		return decimal.Zero, err
	}
	return s.registerRepo.SumMovements(register.ID)
}

func (s *registerService) publish(event string, data interface{}) {
	if s.wsHub == nil {
		return
	}
	go s.wsHub.Publish(event, data)
}
