package repository

import (
	"Atrium/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type OperatorRepo interface {
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
}

type operatorRepoImpl struct {
	db *gorm.DB
}

func NewOperatorRepo(db *gorm.DB) OperatorRepo {
	return &operatorRepoImpl{db: db}
}

func (s *operatorRepoImpl) GetByEmail(ctx context.Context, email string) (*model.Operator, error) {
	var op model.Operator
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}
