// internal/services/license_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/labelhub/internal/database"
	"github.com/javajoker/labelhub/internal/models"
	"github.com/javajoker/labelhub/internal/utils"
)

// LicenseService applies attribute updates to per-device licenses and keeps
// an audit log of every change.
type LicenseService struct {
	db *gorm.DB
}

type LicenseUpdateRequest struct {
	Fields models.LicensePatch `json:"fields"`
	Print  *PrintInput         `json:"print,omitempty"`
}

// PrintInput describes the print event that triggered an update.
type PrintInput struct {
	LabelID  *uuid.UUID             `json:"label_id,omitempty"`
	SKU      string                 `json:"sku,omitempty" validate:"max=100"`
	Quantity int                    `json:"quantity" validate:"min=0"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

type LicenseUpdateResult struct {
	License *models.License    `json:"license"`
	Created bool               `json:"created"`
	Log     *models.LicenseLog `json:"log,omitempty"`
}

var errLicenseRaced = errors.New("license created concurrently")

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

// ApplyUpdate creates the device's license or applies the changed fields to
// it. A log entry is written in the same transaction, before the update, only
// when at least one field changed.
func (s *LicenseService) ApplyUpdate(ctx context.Context, deviceMac string, req *LicenseUpdateRequest) (*models.License, error) {
	result, err := s.Apply(ctx, deviceMac, req)
	if err != nil {
		return nil, err
	}
	return result.License, nil
}

// Apply is ApplyUpdate reporting whether the license was created and which
// log entry, if any, was written.
func (s *LicenseService) Apply(ctx context.Context, deviceMac string, req *LicenseUpdateRequest) (*LicenseUpdateResult, error) {
	if req == nil {
		req = &LicenseUpdateRequest{}
	}

	if err := utils.ValidateVar(deviceMac, "required,max=64,printascii"); err != nil {
		return nil, fmt.Errorf("validation failed: invalid device MAC %q", deviceMac)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	result, err := s.apply(ctx, deviceMac, req)
	if errors.Is(err, errLicenseRaced) {
		// Another writer created the license first; diff against its row.
		result, err = s.apply(ctx, deviceMac, req)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *LicenseService) apply(ctx context.Context, deviceMac string, req *LicenseUpdateRequest) (*LicenseUpdateResult, error) {
	result := &LicenseUpdateResult{}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var printID *uuid.UUID
		if req.Print != nil {
			printEvent := &models.Print{
				DeviceMac: deviceMac,
				LabelID:   req.Print.LabelID,
				SKU:       req.Print.SKU,
				Quantity:  req.Print.Quantity,
				Details:   models.JSONB(req.Print.Details),
			}
			if err := tx.Create(printEvent).Error; err != nil {
				return fmt.Errorf("failed to create print: %w", err)
			}
			printID = &printEvent.ID
		}

		query := tx
		if database.IsPostgres(tx) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var license models.License
		err := query.Where("device_mac = ?", deviceMac).First(&license).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created, err := s.create(tx, deviceMac, req.Fields, printID)
			if err != nil {
				return err
			}
			result.License = created
			result.Created = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		changes, err := utils.Diff(license.LicenseAttributes, req.Fields)
		if err != nil {
			return err
		}

		if !changes.Empty() {
			entry := &models.LicenseLog{
				DeviceMac:     deviceMac,
				ChangedFields: models.JSONB(changes.Values()),
				PrintID:       printID,
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to write license log: %w", err)
			}
			result.Log = entry

			if err := utils.Apply(&license.LicenseAttributes, changes); err != nil {
				return err
			}
			if err := tx.Model(&license).Select(changes.Fields()).Updates(&license).Error; err != nil {
				return fmt.Errorf("failed to update license: %w", err)
			}
		}

		if printID != nil {
			if err := tx.Model(&license).Update("print_id", printID).Error; err != nil {
				return fmt.Errorf("failed to bind print: %w", err)
			}
			license.PrintID = printID
		}

		result.License = &license
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"device_mac": deviceMac,
		"created":    result.Created,
	}
	if result.Log != nil {
		fields["changed"] = len(result.Log.ChangedFields)
	}
	logrus.WithFields(fields).Info("License update applied")

	return result, nil
}

func (s *LicenseService) create(tx *gorm.DB, deviceMac string, patch models.LicensePatch, printID *uuid.UUID) (*models.License, error) {
	license := &models.License{DeviceMac: deviceMac, PrintID: printID}

	changes, err := utils.Diff(license.LicenseAttributes, patch)
	if err != nil {
		return nil, err
	}
	if err := utils.Apply(&license.LicenseAttributes, changes); err != nil {
		return nil, err
	}

	if err := tx.Create(license).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errLicenseRaced
		}
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	return license, nil
}

// Get returns the license of a device.
func (s *LicenseService) Get(ctx context.Context, deviceMac string) (*models.License, error) {
	var license models.License
	err := s.db.WithContext(ctx).Preload("Print").Where("device_mac = ?", deviceMac).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "license not found"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

// History returns the device's audit trail, oldest entry first.
func (s *LicenseService) History(ctx context.Context, deviceMac string) ([]models.LicenseLog, error) {
	var logs []models.LicenseLog
	err := s.db.WithContext(ctx).
		Preload("Print").
		Where("device_mac = ?", deviceMac).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load license history: %w", err)
	}
	return logs, nil
}
