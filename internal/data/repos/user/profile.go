package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fynix-backend/internal/domain"
	"github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type ProfileRepo interface {
	// GetByUserID returns nil, nil when the user has no profile yet.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error)
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.Profile) error
	// AddXP applies delta and returns the new total. XP never drops below 0.
	AddXP(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int) (int, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (r *profileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Profile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var p types.Profile
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.Profile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil || profile.UserID == uuid.Nil {
		return errors.New("profile with user id required")
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "grade", "interests", "roast_level", "language", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *profileRepo) AddXP(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var xp int
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		seed := &types.Profile{UserID: userID, RoastLevel: feed.DefaultRoastLevel}
		if err := txx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}
		if err := txx.Model(&types.Profile{}).
			Where("user_id = ?", userID).
			Update("xp", gorm.Expr("CASE WHEN xp + ? < 0 THEN 0 ELSE xp + ? END", delta, delta)).Error; err != nil {
			return err
		}
		var totals []int
		if err := txx.Model(&types.Profile{}).
			Where("user_id = ?", userID).
			Pluck("xp", &totals).Error; err != nil {
			return err
		}
		if len(totals) > 0 {
			xp = totals[0]
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return xp, nil
}
