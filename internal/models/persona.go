package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Persona is an anonymous identity owned by exactly one user. Its PersonaID
// is the opaque identifier exposed outside the service; the numeric primary
// key never leaves the database layer.
type Persona struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	PersonaID   string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"persona_id"`
	UserID      uint           `gorm:"not null;index" json:"-"`
	DisplayName string         `gorm:"not null" json:"display_name"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (Persona) TableName() string {
	return "personas"
}

// BeforeCreate assigns the opaque persona identifier when the caller did not.
func (p *Persona) BeforeCreate(_ *gorm.DB) error {
	if p.PersonaID == "" {
		p.PersonaID = uuid.New().String()
	}
	return nil
}
