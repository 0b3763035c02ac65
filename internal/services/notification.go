package services

import (
	"context"
	"errors"

	"github.com/webcrawler/backend/internal/models"
	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

type NotificationRequest struct {
	NotificationText string `json:"notification_text" binding:"required"`
}

func (s *NotificationService) List(ctx context.Context, userID uint, req *PageRequest) (*ListResult[models.Notification], error) {
	req.normalize()
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	items := []models.Notification{}
	if err := query.Order("created_at DESC").Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return &ListResult[models.Notification]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

func (s *NotificationService) Get(ctx context.Context, userID, id uint) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NotificationService) Create(ctx context.Context, userID uint, req *NotificationRequest) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, NotificationText: req.NotificationText}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	return deleteOwned(s.db.WithContext(ctx), &models.Notification{}, userID, id)
}
