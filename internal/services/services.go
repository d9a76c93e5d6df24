// internal/services/services.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/config"
)

// Services holds the core components wired for the upstream request layer.
type Services struct {
	Render       *RenderService
	Storage      *StorageService
	Attach       *AttachService
	Labels       *LabelService
	Licenses     *LicenseService
	PrintRecords *PrintRecordService
}

func New(db *gorm.DB, cfg *config.Config) (*Services, error) {
	storageService, err := NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	renderService := NewRenderService(cfg.Renderer)
	attachService := NewAttachService(db, storageService)

	return &Services{
		Render:       renderService,
		Storage:      storageService,
		Attach:       attachService,
		Labels:       NewLabelService(db, renderService, attachService, cfg.Label.DefaultSize),
		Licenses:     NewLicenseService(db),
		PrintRecords: NewPrintRecordService(db),
	}, nil
}
