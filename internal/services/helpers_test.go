package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/config"
	"github.com/javajoker/labelhub/internal/database"
	"github.com/javajoker/labelhub/internal/models"
	"github.com/javajoker/labelhub/internal/utils"
)

// newTestDB returns a migrated in-memory database. A single connection keeps
// every query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:"), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func newLocalStorage(t *testing.T) (*StorageService, string) {
	t.Helper()

	root := t.TempDir()
	storage, err := NewStorageService(&config.Config{
		Storage: config.StorageConfig{
			LocalPath: root,
			PublicURL: "http://files.test/uploads",
		},
	})
	require.NoError(t, err)
	return storage, root
}

func newArtifact(t *testing.T, dir string, format models.LabelFormat, content string) *Artifact {
	t.Helper()

	file, err := os.CreateTemp(dir, "label-*"+format.Ext())
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	return &Artifact{
		Format:   format,
		Path:     file.Name(),
		Size:     int64(len(content)),
		Checksum: utils.HashBytes([]byte(content)),
	}
}

func createLabel(t *testing.T, db *gorm.DB, sku string, client *models.Client) *models.Label {
	t.Helper()

	label := &models.Label{Name: "Label " + sku, SKU: sku}
	if client != nil {
		require.NoError(t, db.Create(client).Error)
		label.ClientID = &client.ID
	}
	require.NoError(t, db.Create(label).Error)
	return label
}

func assertNoFiles(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(dir, e.Name()))
	}
	require.Empty(t, names, "expected no files left in %s", dir)
}

func ptr[T any](v T) *T {
	return &v
}
