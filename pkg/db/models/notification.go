package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// Notification is a persisted, user-directed message.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"userId"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Type      enums.NotificationType `gorm:"type:text;not null" json:"type"`
	Data      json.RawMessage        `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool                   `gorm:"not null;default:false" json:"isRead"`
	ReadAt    *time.Time             `gorm:"type:timestamptz" json:"readAt,omitempty"`
	CreatedAt time.Time              `gorm:"type:timestamptz;not null" json:"createdAt"`
}
