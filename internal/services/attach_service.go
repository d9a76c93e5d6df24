// internal/services/attach_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/database"
	"github.com/javajoker/labelhub/internal/models"
	"github.com/javajoker/labelhub/internal/utils"
)

// ObjectStorage is the file-storage collaborator artifacts are written to.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Records that may own artifact slots, by owner type.
var attachableOwners = map[string]func() interface{}{
	models.OwnerTypeLabel: func() interface{} { return &models.Label{} },
}

type AttachService struct {
	db      *gorm.DB
	storage ObjectStorage
}

func NewAttachService(db *gorm.DB, storage ObjectStorage) *AttachService {
	return &AttachService{
		db:      db,
		storage: storage,
	}
}

// Attach binds each artifact to the named slot of the owner, replacing the
// file the slot held before. Slots are processed in name order; a failure
// leaves the slots processed before it attached.
func (s *AttachService) Attach(ctx context.Context, ownerType string, ownerID uuid.UUID, artifacts map[string]*Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	if err := s.ownerExists(ctx, ownerType, ownerID); err != nil {
		return &AttachError{OwnerType: ownerType, OwnerID: ownerID, Err: err}
	}

	slots := make([]string, 0, len(artifacts))
	for slot := range artifacts {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		artifact := artifacts[slot]
		if artifact == nil {
			return &AttachError{OwnerType: ownerType, OwnerID: ownerID, Slot: slot, Err: errors.New("no artifact")}
		}

		if _, err := s.attachSlot(ctx, ownerType, ownerID, slot, artifact); err != nil {
			return &AttachError{OwnerType: ownerType, OwnerID: ownerID, Slot: slot, Err: err}
		}
	}

	return nil
}

// Files returns the files currently bound to the owner, ordered by slot.
func (s *AttachService) Files(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]models.UploadFile, error) {
	var files []models.UploadFile
	err := s.db.WithContext(ctx).
		Where("related_type = ? AND related_id = ?", ownerType, ownerID).
		Order("field").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load files: %w", err)
	}
	return files, nil
}

// Detach unbinds every file held by the owner. The rows are removed in one
// transaction; the stored objects are deleted afterwards and failures there
// are only logged.
func (s *AttachService) Detach(ctx context.Context, ownerType string, ownerID uuid.UUID) error {
	if _, ok := attachableOwners[ownerType]; !ok {
		return &AttachError{OwnerType: ownerType, OwnerID: ownerID, Err: fmt.Errorf("unsupported owner type %q", ownerType)}
	}

	var files []models.UploadFile
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		ownerScope := tx.Unscoped().Where("related_type = ? AND related_id = ?", ownerType, ownerID)
		if err := ownerScope.Find(&files).Error; err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		return tx.Unscoped().
			Where("related_type = ? AND related_id = ?", ownerType, ownerID).
			Delete(&models.UploadFile{}).Error
	})
	if err != nil {
		return &AttachError{OwnerType: ownerType, OwnerID: ownerID, Err: fmt.Errorf("failed to unbind files: %w", err)}
	}

	cleanupCtx := context.WithoutCancel(ctx)
	for _, file := range files {
		if err := s.storage.Delete(cleanupCtx, file.Key); err != nil {
			logrus.WithError(err).WithField("key", file.Key).Warn("Failed to remove detached artifact object")
		}
	}

	logrus.WithFields(logrus.Fields{
		"owner_type": ownerType,
		"owner_id":   ownerID,
		"files":      len(files),
	}).Info("Artifacts detached")

	return nil
}

func (s *AttachService) ownerExists(ctx context.Context, ownerType string, ownerID uuid.UUID) error {
	newOwner, ok := attachableOwners[ownerType]
	if !ok {
		return fmt.Errorf("unsupported owner type %q", ownerType)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(newOwner()).Where("id = ?", ownerID).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if count == 0 {
		return &NotFoundError{Message: fmt.Sprintf("%s not found", ownerType)}
	}

	return nil
}

func (s *AttachService) attachSlot(ctx context.Context, ownerType string, ownerID uuid.UUID, slot string, artifact *Artifact) (*models.UploadFile, error) {
	data, err := artifact.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	if artifact.Checksum != "" && !utils.ValidateFileHash(data, artifact.Checksum) {
		return nil, fmt.Errorf("artifact %s does not match its checksum", artifact.Path)
	}

	fileName := artifact.FileName()
	key := GenerateObjectKey(path.Join(ownerType, ownerID.String()), fileName)

	result, err := s.storage.Upload(ctx, key, artifact.Format.MimeType(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", fileName, err)
	}

	file := &models.UploadFile{
		Name:        fileName,
		Key:         result.Key,
		URL:         result.URL,
		Mime:        result.MimeType,
		Ext:         filepath.Ext(fileName),
		Size:        result.Size,
		Hash:        utils.HashBytes(data),
		Provider:    result.Provider,
		RelatedID:   ownerID,
		RelatedType: ownerType,
		Field:       slot,
	}

	var superseded []models.UploadFile
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		slotScope := tx.Unscoped().Where("related_type = ? AND related_id = ? AND field = ?", ownerType, ownerID, slot)
		if err := slotScope.Find(&superseded).Error; err != nil {
			return err
		}

		if len(superseded) > 0 {
			err := tx.Unscoped().
				Where("related_type = ? AND related_id = ? AND field = ?", ownerType, ownerID, slot).
				Delete(&models.UploadFile{}).Error
			if err != nil {
				return err
			}
		}

		return tx.Create(file).Error
	})

	cleanupCtx := context.WithoutCancel(ctx)
	if err != nil {
		if delErr := s.storage.Delete(cleanupCtx, result.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", result.Key).Warn("Failed to remove unbound artifact object")
		}
		return nil, fmt.Errorf("failed to bind %s: %w", fileName, err)
	}

	for _, old := range superseded {
		if err := s.storage.Delete(cleanupCtx, old.Key); err != nil {
			logrus.WithError(err).WithField("key", old.Key).Warn("Failed to remove superseded artifact object")
		}
	}

	logrus.WithFields(logrus.Fields{
		"owner_type": ownerType,
		"owner_id":   ownerID,
		"slot":       slot,
		"key":        file.Key,
		"replaced":   len(superseded),
	}).Info("Artifact attached")

	return file, nil
}
