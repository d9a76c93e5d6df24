// internal/models/license.go
package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrLicenseLogImmutable = errors.New("license log entries are immutable")

// LicenseAttributes is the typed attribute schema tracked by the audit ledger.
// Field names must match LicensePatch.
type LicenseAttributes struct {
	Size            string `json:"size" gorm:"size:20"`
	PrinterModel    string `json:"printer_model" gorm:"size:100"`
	PrinterSerial   string `json:"printer_serial" gorm:"size:100"`
	FirmwareVersion string `json:"firmware_version" gorm:"size:50"`
	AppVersion      string `json:"app_version" gorm:"size:50"`
	Dpmm            int    `json:"dpmm"`
	ClientName      string `json:"client_name" gorm:"size:255"`
	Active          bool   `json:"active"`
}

// LicensePatch carries an incoming attribute update. A nil field is absent
// and never counts as a change.
type LicensePatch struct {
	Size            *string `json:"size,omitempty" validate:"omitempty,label_size"`
	PrinterModel    *string `json:"printer_model,omitempty" validate:"omitempty,max=100"`
	PrinterSerial   *string `json:"printer_serial,omitempty" validate:"omitempty,max=100"`
	FirmwareVersion *string `json:"firmware_version,omitempty" validate:"omitempty,max=50"`
	AppVersion      *string `json:"app_version,omitempty" validate:"omitempty,max=50"`
	Dpmm            *int    `json:"dpmm,omitempty" validate:"omitempty,min=1"`
	ClientName      *string `json:"client_name,omitempty" validate:"omitempty,max=255"`
	Active          *bool   `json:"active,omitempty"`
}

type License struct {
	BaseModel
	DeviceMac string `json:"device_mac" gorm:"size:64;not null;uniqueIndex"`
	LicenseAttributes
	PrintID *uuid.UUID `json:"print_id" gorm:"type:uuid;index"`

	// Relationships
	Print *Print `json:"print,omitempty" gorm:"foreignKey:PrintID"`
}

// LicenseLog is an append-only record of the fields an update changed.
type LicenseLog struct {
	BaseModel
	DeviceMac     string     `json:"device_mac" gorm:"size:64;not null;index"`
	ChangedFields JSONB      `json:"changed_fields" gorm:"type:jsonb;not null"`
	PrintID       *uuid.UUID `json:"print_id,omitempty" gorm:"type:uuid;index"`

	// Relationships
	Print *Print `json:"print,omitempty" gorm:"foreignKey:PrintID"`
}

func (l *LicenseLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrLicenseLogImmutable
}

func (l *LicenseLog) BeforeDelete(tx *gorm.DB) error {
	return ErrLicenseLogImmutable
}

// Print is a print event reported by a licensed device.
type Print struct {
	BaseModel
	DeviceMac string     `json:"device_mac" gorm:"size:64;index"`
	LabelID   *uuid.UUID `json:"label_id" gorm:"type:uuid;index"`
	SKU       string     `json:"sku" gorm:"size:100"`
	Quantity  int        `json:"quantity"`
	Details   JSONB      `json:"details" gorm:"type:jsonb"`
}
