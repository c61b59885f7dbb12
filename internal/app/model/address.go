package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Address struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	ReceiverName  string         `gorm:"size:100;not null" json:"receiver_name"`
	ReceiverPhone string         `gorm:"size:30;not null" json:"receiver_phone"`
	Province      string         `gorm:"size:100;not null" json:"province"`
	District      string         `gorm:"size:100" json:"district"`
	Ward          string         `gorm:"size:100" json:"ward"`
	Street        string         `gorm:"type:text;not null" json:"street"`
	IsDefault     bool           `json:"is_default"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Address) TableName() string {
	return "addresses"
}

// Formatted renders the address on one line, street first.
func (a *Address) Formatted() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
