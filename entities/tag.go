package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name  string    `gorm:"size:32;uniqueIndex" json:"name"`
	Color string    `gorm:"size:15;uniqueIndex" json:"color"`
	Slug  string    `gorm:"size:32;uniqueIndex" json:"slug"`

	Timestamp
}

type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name            string    `gorm:"size:200;uniqueIndex" json:"name"`
	MeasurementUnit string    `gorm:"size:200" json:"measurement_unit"`

	Timestamp
}
