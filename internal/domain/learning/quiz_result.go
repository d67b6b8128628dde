package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizResult records a finished material quiz session.
type QuizResult struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	Source    string         `gorm:"column:source;not null" json:"source"`
	Degraded  bool           `gorm:"column:degraded;not null" json:"degraded"`
	Score     int            `gorm:"column:score;not null" json:"score"`
	Total     int            `gorm:"column:total;not null" json:"total"`
	Missed    datatypes.JSON `gorm:"column:missed" json:"missed"`
	Summary   string         `gorm:"column:summary" json:"summary"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuizResult) TableName() string { return "quiz_result" }

func (r *QuizResult) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
