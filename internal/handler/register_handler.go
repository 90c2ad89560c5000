package handler

import (
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/service"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RegisterHandler struct {
	service service.RegisterService
}

func NewRegisterHandler(s service.RegisterService) *RegisterHandler {
	return &RegisterHandler{service: s}
}

type openRegisterRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// OpenRegister starts a cash session for the authenticated user
// POST /api/v1/registers/open
func (h *RegisterHandler) OpenRegister(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req openRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	register, err := h.service.Open(userID, req.OpeningBalance)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Register opened", "data": register})
}

type closeRegisterRequest struct {
	ClosingBalance  decimal.Decimal `json:"closing_balance"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
}

// CloseRegister ends the user's open session; the closing fields land in one
// write and the register becomes immutable
// POST /api/v1/registers/close
func (h *RegisterHandler) CloseRegister(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req closeRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	register, err := h.service.Close(userID, req.ClosingBalance, req.ExpectedBalance, userID)
	if err != nil {
		return fail(c, err)
	}

	exact := false
	if register.Difference != nil {
		exact = service.IsExactBalance(*register.Difference)
	}
	return c.JSON(fiber.Map{
		"message":       "Register closed",
		"data":          register,
		"exact_balance": exact,
	})
}

type movementRequest struct {
	Type    string          `json:"type" validate:"required,oneof=INFLOW OUTFLOW"`
	Amount  decimal.Decimal `json:"amount"`
	Concept string          `json:"concept" validate:"required"`
}

// AddMovement appends a manual entry to the open register's ledger
// POST /api/v1/registers/movements
func (h *RegisterHandler) AddMovement(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": validator.FirstError(errs)})
	}

	movement, err := h.service.AddMovement(userID, model.MovementType(req.Type), req.Amount, req.Concept)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Movement recorded", "data": movement})
}

// GetMovements lists the open register's ledger newest-first; an empty list
// when nothing is open
// GET /api/v1/registers/movements
func (h *RegisterHandler) GetMovements(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	movements, err := h.service.Movements(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(movements)
}

// GetExpectedBalance reports the ledger-derived expected cash for the open
// register, for the closing screen
// GET /api/v1/registers/expected
func (h *RegisterHandler) GetExpectedBalance(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	expected, err := h.service.ExpectedFromLedger(userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"expected_balance": expected})
}

// GetHistory lists closed registers newest-closed-first with opener/closer names
// GET /api/v1/registers/history
func (h *RegisterHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.service.History()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entries)
}
