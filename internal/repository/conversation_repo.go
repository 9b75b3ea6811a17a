package repository

import (
	"Atrium/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ConversationRepo interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, convID string) (*model.Conversation, error)
	// FindByEmail 按邮箱查找既有会话，存在多条时返回最早一条
	FindByEmail(ctx context.Context, email string) (*model.Conversation, error)
	TouchLastMessage(ctx context.Context, convID string, at time.Time) error
}

type conversationRepoImpl struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepoImpl{db: db}
}

func (s *conversationRepoImpl) Create(ctx context.Context, conv *model.Conversation) error {
	return s.db.WithContext(ctx).Create(conv).Error
}

func (s *conversationRepoImpl) GetByID(ctx context.Context, convID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", convID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationRepoImpl) FindByEmail(ctx context.Context, email string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at ASC").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (s *conversationRepoImpl) TouchLastMessage(ctx context.Context, convID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update("last_message_at", at).Error
}
