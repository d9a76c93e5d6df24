// internal/services/label_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/models"
)

type Renderer interface {
	Render(ctx context.Context, markup string, format models.LabelFormat, size string) (*Artifact, error)
}

type Attacher interface {
	Attach(ctx context.Context, ownerType string, ownerID uuid.UUID, artifacts map[string]*Artifact) error
	Detach(ctx context.Context, ownerType string, ownerID uuid.UUID) error
}

// LabelService renders a label's markup and attaches the results to it.
type LabelService struct {
	db          *gorm.DB
	renderer    Renderer
	attacher    Attacher
	defaultSize string
}

func NewLabelService(db *gorm.DB, renderer Renderer, attacher Attacher, defaultSize string) *LabelService {
	if defaultSize == "" {
		defaultSize = "4x6"
	}
	return &LabelService{
		db:          db,
		renderer:    renderer,
		attacher:    attacher,
		defaultSize: defaultSize,
	}
}

// GenerateArtifacts renders markup as PDF and PNG, binds the results to the
// labelPdf and labelPng slots and then stores markup on the label. A failed
// render or attach leaves the stored markup as it was.
func (s *LabelService) GenerateArtifacts(ctx context.Context, labelID uuid.UUID, markup string) (*models.Label, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, &RenderError{Reason: RenderRejected, Message: "markup is empty"}
	}

	label, err := s.getLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	if err := s.renderAndAttach(ctx, label, markup, models.LabelFormatPDF, models.LabelFormatPNG); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(label).Update("markup", markup).Error; err != nil {
		return nil, fmt.Errorf("failed to save markup: %w", err)
	}

	return s.getLabel(ctx, labelID)
}

// RestorePDF re-renders the stored markup and replaces only the PDF.
func (s *LabelService) RestorePDF(ctx context.Context, labelID uuid.UUID) (*models.Label, error) {
	label, err := s.getLabel(ctx, labelID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(label.Markup) == "" {
		return nil, fmt.Errorf("label %s has no markup to render", labelID)
	}

	if err := s.renderAndAttach(ctx, label, label.Markup, models.LabelFormatPDF); err != nil {
		return nil, err
	}

	return s.getLabel(ctx, labelID)
}

// Delete releases every artifact bound to the label and then removes it.
func (s *LabelService) Delete(ctx context.Context, labelID uuid.UUID) error {
	label, err := s.getLabel(ctx, labelID)
	if err != nil {
		return err
	}

	if err := s.attacher.Detach(ctx, models.OwnerTypeLabel, label.ID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(label).Error; err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"label_id": label.ID,
		"sku":      label.SKU,
	}).Info("Label deleted")

	return nil
}

// Size resolves the label size from the owning client's settings.
func (s *LabelService) Size(label *models.Label) string {
	if label.Client != nil && label.Client.Settings.Size != "" {
		return label.Client.Settings.Size
	}
	return s.defaultSize
}

func (s *LabelService) renderAndAttach(ctx context.Context, label *models.Label, markup string, formats ...models.LabelFormat) error {
	size := s.Size(label)
	artifacts := make([]*Artifact, len(formats))
	defer func() {
		ReleaseAll(artifacts...)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		i, format := i, format
		g.Go(func() error {
			artifact, err := s.renderer.Render(gctx, markup, format, size)
			if err != nil {
				return err
			}
			artifacts[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slots := make(map[string]*Artifact, len(artifacts))
	for _, artifact := range artifacts {
		artifact.Name = artifactName(label, artifact.Format)
		slots[slotFor(artifact.Format)] = artifact
	}

	if err := s.attacher.Attach(ctx, models.OwnerTypeLabel, label.ID, slots); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"label_id": label.ID,
		"sku":      label.SKU,
		"size":     size,
		"slots":    len(slots),
	}).Info("Label artifacts generated")

	return nil
}

func (s *LabelService) getLabel(ctx context.Context, labelID uuid.UUID) (*models.Label, error) {
	var label models.Label
	err := s.db.WithContext(ctx).Preload("Client").Preload("Files").First(&label, "id = ?", labelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "label not found"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &label, nil
}

func slotFor(format models.LabelFormat) string {
	if format == models.LabelFormatPDF {
		return models.SlotLabelPDF
	}
	return models.SlotLabelPNG
}

func artifactName(label *models.Label, format models.LabelFormat) string {
	base := label.SKU
	if base == "" {
		base = label.ID.String()
	}
	return base + format.Ext()
}
