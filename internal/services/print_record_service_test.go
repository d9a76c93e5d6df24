package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/labelhub/internal/models"
)

func seedPrintRecord(t *testing.T, db *gorm.DB, uid string, attributes models.JSONB) *models.PrintRecord {
	t.Helper()

	record := &models.PrintRecord{UID: uid, Model: "ZD421", Attributes: attributes}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestPrintRecordService_Register(t *testing.T) {
	db := newTestDB(t)
	service := NewPrintRecordService(db)
	seedPrintRecord(t, db, "PR-1", models.JSONB{"batch": "A7", "color": "white"})

	record, err := service.Register(context.Background(), "PR-1", &RegistrationPayload{
		DeviceMac:    ptr("AA:BB"),
		SerialNumber: ptr("SN-100"),
		Attributes:   map[string]interface{}{"color": "black", "site": "north"},
	})
	require.NoError(t, err)

	assert.True(t, record.IsRegistered)
	require.NotNil(t, record.RegisteredAt)
	assert.Equal(t, "AA:BB", record.DeviceMac)
	assert.Equal(t, "SN-100", record.SerialNumber)
	assert.Equal(t, "ZD421", record.Model, "absent fields keep their value")
	assert.Equal(t, "A7", record.Attributes["batch"])
	assert.Equal(t, "black", record.Attributes["color"])
	assert.Equal(t, "north", record.Attributes["site"])

	stored, err := service.Get(context.Background(), "PR-1")
	require.NoError(t, err)
	assert.True(t, stored.IsRegistered)
	assert.Equal(t, "black", stored.Attributes["color"])
}

func TestPrintRecordService_RegisterTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	service := NewPrintRecordService(db)
	seedPrintRecord(t, db, "PR-2", nil)

	_, err := service.Register(context.Background(), "PR-2", &RegistrationPayload{DeviceMac: ptr("AA:BB")})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), "PR-2", &RegistrationPayload{DeviceMac: ptr("CC:DD")})
	assert.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, ErrCodeConflict, conflict.Code())

	stored, err := service.Get(context.Background(), "PR-2")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB", stored.DeviceMac, "losing claim changes nothing")
}

func TestPrintRecordService_UnknownUID(t *testing.T) {
	db := newTestDB(t)
	service := NewPrintRecordService(db)

	_, err := service.Register(context.Background(), "NOPE", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrintRecordService_RegistersAnySeededCode(t *testing.T) {
	db := newTestDB(t)
	service := NewPrintRecordService(db)

	for _, uid := range []string{"AB.12", "AA:BB:CC", "lot 7/42"} {
		seedPrintRecord(t, db, uid, nil)

		record, err := service.Register(context.Background(), uid, nil)
		require.NoError(t, err, uid)
		assert.True(t, record.IsRegistered, uid)
		assert.Equal(t, uid, record.UID)

		_, err = service.Register(context.Background(), uid, nil)
		assert.ErrorIs(t, err, ErrConflict, uid)
	}

	_, err := service.Register(context.Background(), "CD.34", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrintRecordService_RejectsMalformedUID(t *testing.T) {
	service := NewPrintRecordService(newTestDB(t))

	for _, uid := range []string{"", strings.Repeat("7", 65)} {
		_, err := service.Register(context.Background(), uid, nil)
		assert.ErrorContains(t, err, "validation failed")
		assert.False(t, errors.Is(err, ErrNotFound))
	}
}

func TestPrintRecordService_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	db := newTestDB(t)
	service := NewPrintRecordService(db)
	seedPrintRecord(t, db, "PR-3", nil)

	const claimants = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Register(context.Background(), "PR-3", &RegistrationPayload{})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, claimants-1, conflicts)
}
