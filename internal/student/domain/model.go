package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Student struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	AdmissionNumber string       `gorm:"not null;uniqueIndex" json:"admission_number"`
	Name            string       `gorm:"not null" json:"name"`
	Grade           string       `gorm:"not null" json:"grade"`
	Section         string       `gorm:"not null" json:"section"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}
