package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
	"github.com/jengzang/site-fence-backend-go/internal/spatial"
)

// racingStore never sees the pending alarm on lookup, like a second process
// that lost the race, and rejects the insert through the unique index
type racingStore struct{ inserts int }

func (s *racingStore) FindPending(context.Context, string, int64) (*models.Alarm, error) {
	return nil, nil
}

func (s *racingStore) Insert(context.Context, *models.Alarm) error {
	s.inserts++
	return repository.ErrPendingAlarmExists
}

func TestAlarmDeduplicator_UniqueViolationIsSuppression(t *testing.T) {
	t.Parallel()

	store := &racingStore{}
	d := NewAlarmDeduplicator(store)
	fence := noEntry(1)

	created, err := d.Raise(context.Background(), &Violation{
		Fence: &fence, Device: &models.Device{ID: "d1"}, Position: spatial.Point{Lat: 1, Lon: 2}, At: time.Now(),
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, store.inserts)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	t.Parallel()

	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	require.Len(t, k.locks, 2)

	unlockA()
	unlockB()
	require.Empty(t, k.locks)
}

func TestViolation_Record(t *testing.T) {
	t.Parallel()

	fence := models.Fence{ID: 4, Name: "tower", Behavior: models.BehaviorNoExit}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	v := &Violation{Fence: &fence, Device: &models.Device{ID: "d9", Name: "Truck 9"},
		Position: spatial.Point{Lat: 31.2304161, Lon: 121.4737}, At: at}

	a := v.Record()
	require.Equal(t, models.AlarmTypeFenceExit, a.AlarmType)
	// Unset level falls back to high
	require.Equal(t, models.LevelHigh, a.Severity)
	require.Equal(t, "Device Truck 9 left designated area: tower", a.Description)
	require.Equal(t, "31.230416, 121.473700", a.Location)
	require.Equal(t, int64(4), *a.FenceID)
	require.Equal(t, at, a.CreatedAt)
	require.Nil(t, a.HandledAt)
}
