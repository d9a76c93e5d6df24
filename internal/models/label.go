// internal/models/label.go
package models

import (
	"github.com/google/uuid"
)

type Client struct {
	BaseModel
	Name     string         `json:"name" gorm:"size:255;not null"`
	Settings ClientSettings `json:"settings" gorm:"embedded;embeddedPrefix:settings_"`

	// Relationships
	Labels []Label `json:"labels,omitempty" gorm:"foreignKey:ClientID"`
}

type ClientSettings struct {
	Size string `json:"size" gorm:"size:20"`
}

type Label struct {
	BaseModel
	Name     string     `json:"name" gorm:"size:255;not null"`
	SKU      string     `json:"sku" gorm:"size:100;not null;index"`
	Markup   string     `json:"markup,omitempty" gorm:"type:text"`
	ClientID *uuid.UUID `json:"client_id" gorm:"type:uuid;index"`

	// Relationships
	Client *Client      `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Files  []UploadFile `json:"files,omitempty" gorm:"polymorphic:Related;polymorphicValue:label"`
}

// File returns the artifact currently bound to slot, if any.
func (l *Label) File(slot string) *UploadFile {
	for i := range l.Files {
		if l.Files[i].Field == slot {
			return &l.Files[i]
		}
	}
	return nil
}
