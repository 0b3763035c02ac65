package services

import (
	"context"
	"errors"
	"time"

	"github.com/webcrawler/backend/internal/models"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("dates must be formatted as YYYY-MM-DD")

type NoteService struct {
	db *gorm.DB
}

func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

type NoteRequest struct {
	NoteText string `json:"note_text" binding:"required"`
}

// NoteListRequest filters by creation date; both bounds are inclusive days.
type NoteListRequest struct {
	PageRequest
	From string `form:"from"`
	To   string `form:"to"`
}

func (s *NoteService) List(ctx context.Context, userID uint, req *NoteListRequest) (*ListResult[models.Note], error) {
	req.normalize()
	query := s.db.WithContext(ctx).Model(&models.Note{}).Where("user_id = ?", userID)

	if req.From != "" {
		from, err := time.Parse(dateLayout, req.From)
		if err != nil {
			return nil, ErrInvalidDate
		}
		query = query.Where("created_at >= ?", from)
	}
	if req.To != "" {
		to, err := time.Parse(dateLayout, req.To)
		if err != nil {
			return nil, ErrInvalidDate
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	items := []models.Note{}
	if err := query.Order("created_at DESC").Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return &ListResult[models.Note]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

func (s *NoteService) Get(ctx context.Context, userID, id uint) (*models.Note, error) {
	var n models.Note
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NoteService) Create(ctx context.Context, userID uint, req *NoteRequest) (*models.Note, error) {
	n := &models.Note{UserID: userID, NoteText: req.NoteText}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NoteService) Update(ctx context.Context, userID, id uint, req *NoteRequest) (*models.Note, error) {
	n, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(n).Update("note_text", req.NoteText).Error; err != nil {
		return nil, err
	}
	n.NoteText = req.NoteText
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, id uint) error {
	return deleteOwned(s.db.WithContext(ctx), &models.Note{}, userID, id)
}
