package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and an auto-generated UUID for auth models.
// Identity rows use UUIDs instead of library-generated ids.
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate generates a UUID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// User represents an account holder
type User struct {
	BaseModel
	Name          string `json:"name"`
	Email         string `json:"email" gorm:"uniqueIndex;not null"`
	EmailVerified bool   `json:"email_verified" gorm:"not null;default:false"`
	Image         string `json:"image"`
}

// ProviderCredential is the provider id of email/password accounts
const ProviderCredential = "credential"

// Account links a user to an authentication provider.
// Email/password users have a single "credential" account holding the password hash.
type Account struct {
	BaseModel
	AccountID    string `json:"account_id" gorm:"not null"`
	ProviderID   string `json:"provider_id" gorm:"not null;index:idx_accounts_provider_user"`
	UserID       string `json:"user_id" gorm:"not null;index:idx_accounts_provider_user"`
	PasswordHash string `json:"-"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Session is a server-side session row. Deleting the row revokes the session.
type Session struct {
	BaseModel
	// Token is the id carried by the signed session token (jti claim)
	Token     string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	UserID    string    `json:"user_id" gorm:"not null;index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the session has expired at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Upload is metadata for an object stored in the object store
type Upload struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	Bucket      string    `json:"bucket" gorm:"not null"`
	Key         string    `json:"key" gorm:"not null;uniqueIndex"`
	Filename    string    `json:"filename" gorm:"not null"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate generates a ULID so uploads sort by creation time
func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = ulid.Make().String()
	}
	return nil
}

// Setting is a singleton row (only one row should exist)
type Setting struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	AuthSecret string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first start (64 hex chars)
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Account{}, &Session{}, &Upload{}, &Setting{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
