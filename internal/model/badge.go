package model

import "time"

// Badge is a QR-code-identified device credential with an active window.
type Badge struct {
	ID             string     `json:"id"`
	QRCode         string     `json:"qr_code"`
	Name           string     `json:"name"`
	DeviceBrand    string     `json:"device_brand"`
	DeviceModel    string     `json:"device_model"`
	ValidationTime *time.Time `json:"validation_time"`
	ExpirationTime time.Time  `json:"expiration_time"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Expired reports whether now is past the badge expiration instant.
func (b Badge) Expired(now time.Time) bool {
	return now.After(b.ExpirationTime)
}
