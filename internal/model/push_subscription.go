package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// SubscriptionTarget maps a subscription to one machine the subscriber wants
// availability notifications for.
type SubscriptionTarget struct {
	Endpoint  string `gorm:"primaryKey"`
	MachineID string `gorm:"primaryKey;size:64;index"`
}
