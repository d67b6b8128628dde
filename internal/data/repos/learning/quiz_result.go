package learning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fynix-backend/internal/domain"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type QuizResultRepo interface {
	Create(ctx context.Context, tx *gorm.DB, results []*types.QuizResult) ([]*types.QuizResult, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.QuizResult, error)
}

type quizResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizResultRepo(db *gorm.DB, baseLog *logger.Logger) QuizResultRepo {
	repoLog := baseLog.With("repo", "QuizResultRepo")
	return &quizResultRepo{db: db, log: repoLog}
}

func (r *quizResultRepo) Create(ctx context.Context, tx *gorm.DB, results []*types.QuizResult) ([]*types.QuizResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(results) == 0 {
		return []*types.QuizResult{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *quizResultRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.QuizResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}

	var results []*types.QuizResult
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
