// internal/models/upload.go
package models

import (
	"github.com/google/uuid"
)

// UploadFile binds one stored object to a named slot of its owner.
// A slot holds at most one file.
type UploadFile struct {
	BaseModel
	Name        string    `json:"name" gorm:"size:255;not null"`
	Key         string    `json:"key" gorm:"size:512;not null"`
	URL         string    `json:"url" gorm:"size:1024"`
	Mime        string    `json:"mime" gorm:"size:100"`
	Ext         string    `json:"ext" gorm:"size:10"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash" gorm:"size:64"`
	Provider    string    `json:"provider" gorm:"size:20"`
	RelatedID   uuid.UUID `json:"related_id" gorm:"type:uuid;not null;uniqueIndex:idx_upload_files_slot"`
	RelatedType string    `json:"related_type" gorm:"size:50;not null;uniqueIndex:idx_upload_files_slot"`
	Field       string    `json:"field" gorm:"size:50;not null;uniqueIndex:idx_upload_files_slot"`
}
