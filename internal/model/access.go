package model

import "time"

// Access is an immutable log entry for one successful badge scan.
type Access struct {
	ID        string    `json:"id"`
	BadgeID   string    `json:"badge_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessWithBadge is an access joined to a summary of its badge.
type AccessWithBadge struct {
	Access
	QRCode      string `json:"qr_code"`
	Name        string `json:"name"`
	DeviceBrand string `json:"device_brand"`
	DeviceModel string `json:"device_model"`
}

type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

type DeviceCount struct {
	DeviceBrand string `json:"device_brand"`
	Count       int    `json:"count"`
}

type AccessStats struct {
	Total        int           `json:"total"`
	UniqueBadges int           `json:"uniqueBadges"`
	Daily        []DailyCount  `json:"daily"`
	Devices      []DeviceCount `json:"devices"`
}
