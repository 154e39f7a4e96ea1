// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationStatus represents the verification state of a professional account.
// The canonical values are lowercase; every comparison in the codebase goes
// through this type.
type VerificationStatus string

const (
	// VerificationVerified indicates a fully verified professional account.
	VerificationVerified VerificationStatus = "verified"
	// VerificationPending indicates a verification request awaiting review.
	VerificationPending VerificationStatus = "pending"
	// VerificationUnverified indicates no verification has been requested.
	VerificationUnverified VerificationStatus = "unverified"
	// VerificationExpired indicates a previously granted verification that lapsed.
	VerificationExpired VerificationStatus = "expired"
)

// Valid reports whether s is one of the canonical verification states.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationVerified, VerificationPending, VerificationUnverified, VerificationExpired:
		return true
	}
	return false
}

// User represents a professional account on the Linker platform.
type User struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	Username           string             `gorm:"unique;not null" json:"username"`
	Email              string             `gorm:"unique;not null" json:"email"`
	Password           string             `gorm:"not null" json:"-"`
	Headline           string             `json:"headline"`
	Avatar             string             `json:"avatar"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(20);default:'unverified'" json:"verification_status"`
	IsAdmin            bool               `gorm:"default:false" json:"is_admin"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
	Personas           []Persona          `gorm:"foreignKey:UserID" json:"personas,omitempty"`
}
