package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile is the learner profile the content pipeline reads for prompt
// construction, plus the XP counter it bumps.
type Profile struct {
	UserID     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	Name       string         `gorm:"column:name" json:"name"`
	Grade      string         `gorm:"column:grade" json:"grade"`
	Interests  datatypes.JSON `gorm:"column:interests" json:"interests"`
	RoastLevel int            `gorm:"column:roast_level;not null" json:"roast_level"`
	Language   string         `gorm:"column:language" json:"language"`
	XP         int            `gorm:"column:xp;not null;default:0" json:"xp"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Profile) TableName() string { return "profile" }
