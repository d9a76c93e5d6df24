// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}

	return json.Unmarshal(data, j)
}

// Merge copies every key of other into j, overwriting existing keys.
func (j JSONB) Merge(other map[string]interface{}) JSONB {
	merged := make(JSONB, len(j)+len(other))
	for k, v := range j {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Enums
type LabelFormat string

const (
	LabelFormatPDF LabelFormat = "pdf"
	LabelFormatPNG LabelFormat = "png"
)

func (f LabelFormat) MimeType() string {
	if f == LabelFormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

func (f LabelFormat) Ext() string {
	return "." + string(f)
}

// Artifact slots on a label
const (
	SlotLabelPDF = "labelPdf"
	SlotLabelPNG = "labelPng"
)

// Owner types accepted by the attacher
const (
	OwnerTypeLabel = "label"
)
