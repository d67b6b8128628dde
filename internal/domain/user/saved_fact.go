package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedFact is a copy of a feed item the user bookmarked. (user_id, title)
// is unique: titles are the identity of feed items.
type SavedFact struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_saved_fact_user_title" json:"user_id"`
	Title    string    `gorm:"column:title;not null;uniqueIndex:idx_saved_fact_user_title" json:"title"`
	Category string    `gorm:"column:category" json:"category"`
	Content  string    `gorm:"column:content" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SavedFact) TableName() string { return "saved_fact" }

func (f *SavedFact) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
