package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/pkg/logger"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitSystemLogger sets the database the audit helpers write to. Until it is
// called they are no-ops.
func InitSystemLogger(db *gorm.DB) {
	auditDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("info", module, action, message, userID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("warning", module, action, message, userID, ip, userAgent, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog("error", module, action, message, userID, ip, userAgent, extra)
}

func writeLog(level, module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	if auditDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: truncate(userAgent, 500),
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := auditDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("write audit log")
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	PageRequest
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*ListResult[models.SystemLog], error) {
	req.normalize()

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		from, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		query = query.Where("created_at >= ?", from)
	}
	if req.EndDate != "" {
		to, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return nil, ErrInvalidDate
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := []models.SystemLog{}
	if err := query.Order("created_at DESC").Offset(req.offset()).Limit(req.PageSize).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &ListResult[models.SystemLog]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: logs}, nil
}

// CleanupOldLogs deletes entries older than retentionDays and returns how
// many were removed. A non-positive retention disables cleanup.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
