package model

// MachineUsage counts detected cycle starts per machine per calendar date.
// The count only ever increases within a day.
type MachineUsage struct {
	MachineID string `gorm:"primaryKey;size:64"`
	UseDate   string `gorm:"primaryKey;size:10"` // YYYY-MM-DD
	UseCount  int    `gorm:"not null"`
}
