package user

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fynix-backend/internal/domain"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type SavedFactRepo interface {
	// Create inserts fact unless the user already saved that title. It
	// reports whether a row was written.
	Create(ctx context.Context, tx *gorm.DB, fact *types.SavedFact) (bool, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SavedFact, error)
}

type savedFactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSavedFactRepo(db *gorm.DB, baseLog *logger.Logger) SavedFactRepo {
	repoLog := baseLog.With("repo", "SavedFactRepo")
	return &savedFactRepo{db: db, log: repoLog}
}

func (r *savedFactRepo) Create(ctx context.Context, tx *gorm.DB, fact *types.SavedFact) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "title"}},
			DoNothing: true,
		}).
		Create(fact)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *savedFactRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SavedFact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SavedFact
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
