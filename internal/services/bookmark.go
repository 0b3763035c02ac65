package services

import (
	"context"
	"errors"

	"github.com/webcrawler/backend/internal/models"
	"gorm.io/gorm"
)

type BookmarkService struct {
	db *gorm.DB
}

func NewBookmarkService(db *gorm.DB) *BookmarkService {
	return &BookmarkService{db: db}
}

type BookmarkRequest struct {
	ContentID   int    `json:"content_id" binding:"required"`
	ContentText string `json:"content_text" binding:"max=100"`
	ContentURL  string `json:"content_url" binding:"max=100"`
}

func (s *BookmarkService) List(ctx context.Context, userID uint, req *PageRequest) (*ListResult[models.Bookmark], error) {
	req.normalize()
	query := s.db.WithContext(ctx).Model(&models.Bookmark{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	items := []models.Bookmark{}
	if err := query.Order("id DESC").Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return &ListResult[models.Bookmark]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

func (s *BookmarkService) Get(ctx context.Context, userID, id uint) (*models.Bookmark, error) {
	var b models.Bookmark
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BookmarkService) Create(ctx context.Context, userID uint, req *BookmarkRequest) (*models.Bookmark, error) {
	b := &models.Bookmark{
		UserID:      userID,
		ContentID:   req.ContentID,
		ContentText: req.ContentText,
		ContentURL:  req.ContentURL,
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookmarkService) Update(ctx context.Context, userID, id uint, req *BookmarkRequest) (*models.Bookmark, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b.ContentID = req.ContentID
	b.ContentText = req.ContentText
	b.ContentURL = req.ContentURL
	if err := s.db.WithContext(ctx).Save(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookmarkService) Delete(ctx context.Context, userID, id uint) error {
	return deleteOwned(s.db.WithContext(ctx), &models.Bookmark{}, userID, id)
}

// deleteOwned removes row id of model when it belongs to userID.
func deleteOwned(db *gorm.DB, model interface{}, userID, id uint) error {
	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
