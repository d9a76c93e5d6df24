// internal/services/print_record_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/database"
	"github.com/javajoker/labelhub/internal/models"
	"github.com/javajoker/labelhub/internal/utils"
)

// PrintRecordService claims pre-seeded provisioning codes.
type PrintRecordService struct {
	db *gorm.DB
}

// RegistrationPayload is what a device reports when it claims a code. Nil
// fields leave the stored value untouched; Attributes are merged key by key.
type RegistrationPayload struct {
	DeviceMac       *string                `json:"device_mac,omitempty" validate:"omitempty,max=64,printascii"`
	SerialNumber    *string                `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Model           *string                `json:"model,omitempty" validate:"omitempty,max=100"`
	FirmwareVersion *string                `json:"firmware_version,omitempty" validate:"omitempty,max=50"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
}

func NewPrintRecordService(db *gorm.DB) *PrintRecordService {
	return &PrintRecordService{db: db}
}

// Register flips the record's IsRegistered from false to true with a single
// conditional update, so concurrent claims of the same uid have exactly one
// winner. Losers get a ConflictError; unknown codes a NotFoundError.
func (s *PrintRecordService) Register(ctx context.Context, uid string, payload *RegistrationPayload) (*models.PrintRecord, error) {
	if payload == nil {
		payload = &RegistrationPayload{}
	}

	if err := utils.ValidateVar(uid, "required,max=64"); err != nil {
		return nil, fmt.Errorf("validation failed: invalid uid %q", uid)
	}
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, validationFailed(err)
	}

	updates := map[string]interface{}{
		"is_registered": true,
		"registered_at": time.Now().UTC(),
	}
	if payload.DeviceMac != nil {
		updates["device_mac"] = *payload.DeviceMac
	}
	if payload.SerialNumber != nil {
		updates["serial_number"] = *payload.SerialNumber
	}
	if payload.Model != nil {
		updates["model"] = *payload.Model
	}
	if payload.FirmwareVersion != nil {
		updates["firmware_version"] = *payload.FirmwareVersion
	}

	var record models.PrintRecord
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		claim := tx.Model(&models.PrintRecord{}).
			Where("uid = ? AND is_registered = ?", uid, false).
			Updates(updates)
		if claim.Error != nil {
			return fmt.Errorf("failed to register uid: %w", claim.Error)
		}

		if claim.RowsAffected == 0 {
			var existing models.PrintRecord
			err := tx.Select("id", "is_registered").Where("uid = ?", uid).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Message: "uid not found"}
			}
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			return &ConflictError{Message: "uid already registered"}
		}

		if err := tx.Where("uid = ?", uid).First(&record).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		if len(payload.Attributes) > 0 {
			record.Attributes = record.Attributes.Merge(payload.Attributes)
			if err := tx.Model(&record).Update("attributes", record.Attributes).Error; err != nil {
				return fmt.Errorf("failed to merge attributes: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("uid", uid).Warn("Print registration refused")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"uid":        uid,
		"device_mac": record.DeviceMac,
	}).Info("Print registered")

	return &record, nil
}

// Get returns the record for a provisioning code.
func (s *PrintRecordService) Get(ctx context.Context, uid string) (*models.PrintRecord, error) {
	var record models.PrintRecord
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "uid not found"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &record, nil
}
