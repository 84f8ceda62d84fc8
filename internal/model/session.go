package model

import "time"

type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	DeviceID   string     `json:"deviceId"`
	DeviceName string     `json:"deviceName"`
	SecretHash string     `json:"-"`
	LastSeenAt time.Time  `json:"lastSeenAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
}
