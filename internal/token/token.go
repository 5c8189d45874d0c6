// Package token issues and consumes single-use confirmation tokens that
// let a user act on a task or stage from an email link without a session.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// Type identifies what a confirmation token authorizes. Closed set:
// ExecuteAction switches over these constants.
type Type string

const (
	TypeTaskAssignment    Type = "TASK_ASSIGNMENT"
	TypeTaskStatusChange  Type = "TASK_STATUS_CHANGE"
	TypeStageStatusChange Type = "STAGE_STATUS_CHANGE"
	TypeProjectCreated    Type = "PROJECT_CREATED"
)

// TTL is how long a token stays valid after creation.
const TTL = 7 * 24 * time.Hour

// User-facing confirmation errors. The wording is load-bearing: the
// confirmation endpoint returns these strings verbatim.
var (
	ErrInvalid = errors.New("Token invalide ou expiré")
	ErrUsed    = errors.New("Ce token a déjà été utilisé")
	ErrExpired = errors.New("Ce token a expiré")
)

// CreateOpts holds the tuple a token binds.
type CreateOpts struct {
	Type       Type
	UserID     string
	EntityType string
	EntityID   string
	Metadata   string
}

// Data is the stored tuple returned to the caller on a successful confirm.
type Data struct {
	Type       Type
	UserID     string
	EntityType string
	EntityID   string
	Metadata   string
}

// Generate returns a fresh opaque token: 32 bytes of entropy, hex-encoded.
func Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create persists a new confirmation token expiring in 7 days and returns
// the token string. On any failure it logs and returns "": callers treat
// an empty token as "notification link omitted", never as a hard failure
// of the parent operation.
func Create(db *gorm.DB, opts CreateOpts) string {
	t, err := Generate()
	if err != nil {
		log.Printf("token: create: %v", err)
		return ""
	}

	row := models.ConfirmationToken{
		Token:      t,
		Type:       string(opts.Type),
		UserID:     opts.UserID,
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		Metadata:   opts.Metadata,
		ExpiresAt:  time.Now().Add(TTL),
	}
	if err := db.Create(&row).Error; err != nil {
		log.Printf("token: persist for %s/%s: %v", opts.EntityType, opts.EntityID, err)
		return ""
	}
	return t
}

// Confirm consumes a token exactly once and returns its stored tuple.
// Checks run in order: unknown token, already used, expired — not-found
// and already-used take precedence over expiry. The confirmed flip happens
// in a transaction that re-checks confirmed=false, so a concurrent second
// call lands on ErrUsed instead of re-running side effects.
func Confirm(db *gorm.DB, t string) (*Data, error) {
	var data *Data

	err := db.Transaction(func(tx *gorm.DB) error {
		var row models.ConfirmationToken
		if err := tx.Where("token = ?", t).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalid
			}
			log.Printf("token: lookup: %v", err)
			return ErrInvalid
		}
		if row.Confirmed {
			return ErrUsed
		}
		if time.Now().After(row.ExpiresAt) {
			return ErrExpired
		}

		now := time.Now()
		result := tx.Model(&models.ConfirmationToken{}).
			Where("token = ? AND confirmed = ?", t, false).
			Updates(map[string]interface{}{"confirmed": true, "confirmed_at": now})
		if result.Error != nil {
			log.Printf("token: consume: %v", result.Error)
			return ErrInvalid
		}
		if result.RowsAffected == 0 {
			return ErrUsed
		}

		data = &Data{
			Type:       Type(row.Type),
			UserID:     row.UserID,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Metadata:   row.Metadata,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
