// Package auth configures email/password authentication on top of gorm,
// bcrypt and signed session tokens.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/launchkit-dev/launchkit/internal/models"
)

// Options configures the auth service
type Options struct {
	// Secret signs session tokens. Empty = load or generate the persisted secret.
	Secret string

	// EmailAndPassword enables the email/password flows
	EmailAndPassword bool

	// ExpiresIn is the session lifetime
	ExpiresIn time.Duration

	// UpdateAge is how old a session must be before its expiry is extended. Zero disables sliding expiry.
	UpdateAge time.Duration

	MinPasswordLength int
	MaxPasswordLength int

	// PasswordCost is the bcrypt cost (defaults to bcrypt.DefaultCost)
	PasswordCost int

	// Now overrides the clock (tests)
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.ExpiresIn <= 0 {
		o.ExpiresIn = 7 * 24 * time.Hour
	}
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = 8
	}
	if o.MaxPasswordLength <= 0 {
		o.MaxPasswordLength = 72
	}
	if o.PasswordCost == 0 {
		o.PasswordCost = bcrypt.DefaultCost
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Auth is the configured authentication service
type Auth struct {
	db     *gorm.DB
	opts   Options
	signer *tokenSigner
}

// SignUpInput is the input of SignUpEmail
type SignUpInput struct {
	Name      string
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// SignInInput is the input of SignInEmail
type SignInInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Result is returned by the sign-up and sign-in flows
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// New creates the auth service. The database must already be migrated.
func New(db *gorm.DB, opts Options) (*Auth, error) {
	opts.setDefaults()

	secret, err := ResolveSecret(db, opts.Secret)
	if err != nil {
		return nil, err
	}

	return &Auth{
		db:     db,
		opts:   opts,
		signer: newTokenSigner(secret),
	}, nil
}

// ResolveSecret returns the configured secret, or the persisted one.
// When neither exists a secret is generated and persisted in the settings row.
func ResolveSecret(db *gorm.DB, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var setting models.Setting
	err := db.First(&setting).Error
	if err == nil && setting.AuthSecret != "" {
		return setting.AuthSecret, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}

	// 64 hex characters = 32 bytes of randomness
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate auth secret: %w", err)
	}
	setting.AuthSecret = hex.EncodeToString(secretBytes)

	if err := db.Save(&setting).Error; err != nil {
		return "", fmt.Errorf("failed to persist auth secret: %w", err)
	}

	return setting.AuthSecret, nil
}

// DeriveKey derives a purpose-bound key from the auth secret, so one secret
// can sign unrelated cookies without the signatures being interchangeable
func DeriveKey(secret, purpose string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return hex.EncodeToString(mac.Sum(nil))
}

// SessionTTL returns the configured session lifetime
func (a *Auth) SessionTTL() time.Duration {
	return a.opts.ExpiresIn
}

// SignUpEmail creates a user with a credential account and opens a session
func (a *Auth) SignUpEmail(ctx context.Context, in SignUpInput) (*Result, error) {
	if !a.opts.EmailAndPassword {
		return nil, ErrEmailPasswordDisabled
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := a.checkPassword(in.Password); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(in.Password, a.opts.PasswordCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:  strings.TrimSpace(in.Name),
		Email: email,
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			return ErrUserExists
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		account := models.Account{
			AccountID:    user.ID,
			ProviderID:   models.ProviderCredential,
			UserID:       user.ID,
			PasswordHash: passwordHash,
		}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return a.openSession(ctx, user, in.IPAddress, in.UserAgent)
}

// SignInEmail verifies the credential account password and opens a session
func (a *Auth) SignInEmail(ctx context.Context, in SignInInput) (*Result, error) {
	if !a.opts.EmailAndPassword {
		return nil, ErrEmailPasswordDisabled
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	db := a.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var account models.Account
	if err := db.Where("user_id = ? AND provider_id = ?", user.ID, models.ProviderCredential).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if err := VerifyPassword(in.Password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.openSession(ctx, user, in.IPAddress, in.UserAgent)
}

// GetSession resolves a session token. Missing, revoked and expired sessions
// return ErrSessionNotFound.
func (a *Auth) GetSession(ctx context.Context, token string) (*SessionData, error) {
	claims, err := a.signer.parse(token)
	if err != nil {
		return nil, err
	}

	db := a.db.WithContext(ctx)

	var session models.Session
	if err := db.Preload("User").Where("token = ?", claims.ID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session.User == nil {
		return nil, ErrSessionNotFound
	}

	now := a.opts.Now()
	if session.Expired(now) {
		if err := db.Delete(&session).Error; err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, ErrSessionNotFound
	}

	refreshed := false
	if a.opts.UpdateAge > 0 && !now.Before(session.ExpiresAt.Add(-a.opts.ExpiresIn).Add(a.opts.UpdateAge)) {
		session.ExpiresAt = now.Add(a.opts.ExpiresIn)
		if err := db.Model(&session).Update("expires_at", session.ExpiresAt).Error; err != nil {
			return nil, fmt.Errorf("failed to extend session: %w", err)
		}
		refreshed = true
	}

	return &SessionData{
		SessionID: session.ID,
		UserID:    session.User.ID,
		Email:     session.User.Email,
		Name:      session.User.Name,
		ExpiresAt: session.ExpiresAt,
		Token:     token,
		Refreshed: refreshed,
	}, nil
}

// SignOut revokes the session behind token. Unknown sessions are not an error.
func (a *Auth) SignOut(ctx context.Context, token string) error {
	claims, err := a.signer.parse(token)
	if err != nil {
		return err
	}

	if err := a.db.WithContext(ctx).Where("token = ?", claims.ID).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RevokeUserSessions deletes every session of a user
func (a *Auth) RevokeUserSessions(ctx context.Context, userID string) error {
	if err := a.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now
func (a *Auth) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return PurgeExpiredSessions(ctx, a.db, now)
}

// PurgeExpiredSessions deletes sessions that expired before now.
// Workers call it without constructing the full service.
func PurgeExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (a *Auth) openSession(ctx context.Context, user models.User, ip, userAgent string) (*Result, error) {
	tokenID, err := newTokenID()
	if err != nil {
		return nil, err
	}

	now := a.opts.Now()
	session := models.Session{
		Token:     tokenID,
		ExpiresAt: now.Add(a.opts.ExpiresIn),
		IPAddress: ip,
		UserAgent: userAgent,
		UserID:    user.ID,
	}
	if err := a.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := a.signer.sign(tokenID, user.ID, user.Email, now)
	if err != nil {
		return nil, err
	}

	return &Result{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

func (a *Auth) checkPassword(password string) error {
	if len(password) < a.opts.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > a.opts.MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
