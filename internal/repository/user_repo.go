package repository

import (
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/apperr"
	"github.com/imanderrrrr/sistema-pos-venta-postgres/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	FindByEmail(email string) (*model.User, error)
	FindByID(id uuid.UUID) (*model.User, error)
	Create(user *model.User) error
	Update(user *model.User) error
	FindAll() ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &user, nil
}

func (r *userRepo) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &user, nil
}

func (r *userRepo) Create(user *model.User) error {
	return apperr.Classify(r.db.Create(user).Error)
}

func (r *userRepo) Update(user *model.User) error {
	return apperr.Classify(r.db.Save(user).Error)
}

func (r *userRepo) FindAll() ([]model.User, error) {
	var users []model.User
	if err := r.db.Find(&users).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return users, nil
}
