package promo

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no promotion exists for the code.
	ErrNotFound = errors.New("promotion not found")
	// ErrInactive is returned when the promotion is disabled.
	ErrInactive = errors.New("promotion not active")
	// ErrNotStarted is returned before the validity window opens.
	ErrNotStarted = errors.New("promotion not started")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("promotion expired")
)

// Kind distinguishes the two supported promotion behaviours.
type Kind string

const (
	// KindDiscount applies a percentage discount to eligible lines.
	KindDiscount Kind = "DISCOUNT"
	// KindRule triggers the free size-upgrade substitution on drink lines
	// once the eligible quantity threshold is met.
	KindRule Kind = "RULE"
)

// Valid reports membership in the closed kind set.
func (k Kind) Valid() bool { return k == KindDiscount || k == KindRule }

// Promotion captures the runtime constraints of a promotion record.
type Promotion struct {
	ID         uuid.UUID
	Code       string
	Kind       Kind
	PercentOff int
	MinQty     int
	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool
	Scope      Scope
}

// ValidateWindow checks the activation window at the provided instant.
// Callers treat any error as "promotion absent": quoting proceeds without
// adjustments rather than failing the request.
func (p Promotion) ValidateWindow(now time.Time) error {
	if !p.IsActive {
		return ErrInactive
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return ErrNotStarted
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return ErrExpired
	}
	return nil
}
