// Package validation holds the field rules shared by badges and users.
// Every function here is pure.
package validation

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	qrCodeRules      = []validation.Rule{validation.Required, validation.RuneLength(5, 100)}
	emailRules       = []validation.Rule{validation.Required, validation.Match(emailRegex)}
	usernameRules    = []validation.Rule{validation.Required, validation.RuneLength(3, 50)}
	passwordRules    = []validation.Rule{validation.Required, validation.RuneLength(8, 0)}
	deviceBrandRules = []validation.Rule{validation.Required, validation.RuneLength(1, 50)}
	deviceModelRules = []validation.Rule{validation.Required, validation.RuneLength(1, 100)}
)

func IsValidQRCode(s string) bool      { return validation.Validate(s, qrCodeRules...) == nil }
func IsValidEmail(s string) bool       { return validation.Validate(s, emailRules...) == nil }
func IsValidUsername(s string) bool    { return validation.Validate(s, usernameRules...) == nil }
func IsValidPassword(s string) bool    { return validation.Validate(s, passwordRules...) == nil }
func IsValidDeviceBrand(s string) bool { return validation.Validate(s, deviceBrandRules...) == nil }
func IsValidDeviceModel(s string) bool { return validation.Validate(s, deviceModelRules...) == nil }

// ExpirationPolicy bounds badge expiration instants by a fixed event ceiling.
// The ceiling doubles as the default expiration.
type ExpirationPolicy struct {
	Ceiling time.Time
}

func NewExpirationPolicy(ceiling time.Time) ExpirationPolicy {
	return ExpirationPolicy{Ceiling: ceiling.UTC()}
}

func (p ExpirationPolicy) Default() time.Time {
	return p.Ceiling
}

// Valid reports whether t is strictly after now and not after the ceiling.
func (p ExpirationPolicy) Valid(t, now time.Time) bool {
	return t.After(now) && !t.After(p.Ceiling)
}

// Resolve returns candidate when it is valid, the default otherwise.
func (p ExpirationPolicy) Resolve(candidate *time.Time, now time.Time) time.Time {
	if candidate != nil && p.Valid(*candidate, now) {
		return candidate.UTC()
	}
	return p.Default()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts the date formats admin clients send. Layouts without
// an offset are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
