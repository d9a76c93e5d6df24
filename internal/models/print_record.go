// internal/models/print_record.go
package models

import (
	"time"
)

// PrintRecord is a pre-seeded provisioning code. IsRegistered only ever
// moves from false to true.
type PrintRecord struct {
	BaseModel
	UID             string     `json:"uid" gorm:"size:64;not null;uniqueIndex"`
	IsRegistered    bool       `json:"is_registered" gorm:"not null;default:false;index"`
	RegisteredAt    *time.Time `json:"registered_at"`
	DeviceMac       string     `json:"device_mac" gorm:"size:64;index"`
	SerialNumber    string     `json:"serial_number" gorm:"size:100"`
	Model           string     `json:"model" gorm:"size:100"`
	FirmwareVersion string     `json:"firmware_version" gorm:"size:50"`
	Attributes      JSONB      `json:"attributes" gorm:"type:jsonb"`
}
