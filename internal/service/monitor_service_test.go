package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

type fakeDevices struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func newFakeDevices(devices ...models.Device) *fakeDevices {
	f := &fakeDevices{devices: map[string]*models.Device{}}
	for i := range devices {
		d := devices[i]
		f.devices[d.ID] = &d
	}
	return f
}

func (f *fakeDevices) GetByID(_ context.Context, id string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDevices) SetPosition(_ context.Context, id string, lat, lng float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.devices[id]
	d.LastLatitude, d.LastLongitude, d.PositionUpdatedAt = &lat, &lng, &at
	return nil
}

func (f *fakeDevices) ListPositioned(_ context.Context) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Device{}
	for _, d := range f.devices {
		if d.HasPosition() {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeFences struct {
	mu      sync.Mutex
	fences  []models.Fence
	regions map[int64]*models.ProjectRegion
	counts  map[int64]int
}

func newFakeFences(fences ...models.Fence) *fakeFences {
	return &fakeFences{fences: fences, regions: map[int64]*models.ProjectRegion{}, counts: map[int64]int{}}
}

func (f *fakeFences) ListActive(_ context.Context) ([]models.Fence, error) {
	out := []models.Fence{}
	for _, fence := range f.fences {
		if fence.IsActive {
			out = append(out, fence)
		}
	}
	return out, nil
}

func (f *fakeFences) GetByID(_ context.Context, id int64) (*models.Fence, error) {
	for i := range f.fences {
		if f.fences[i].ID == id {
			cp := f.fences[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeFences) SetViolatorCount(_ context.Context, id int64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[id] = count
	return nil
}

func (f *fakeFences) GetRegion(_ context.Context, id int64) (*models.ProjectRegion, error) {
	return f.regions[id], nil
}

func (f *fakeFences) count(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[id]
}

type fakeAlarms struct {
	mu     sync.Mutex
	alarms []models.Alarm
	// unique mimics the pending-alarm index
	unique bool
	// failFence makes inserts for that fence fail
	failFence int64
}

func (f *fakeAlarms) FindPending(_ context.Context, deviceID string, fenceID int64) (*models.Alarm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alarms {
		a := f.alarms[i]
		if a.DeviceID == deviceID && a.FenceID != nil && *a.FenceID == fenceID && a.Status == models.AlarmStatusPending {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeAlarms) Insert(_ context.Context, a *models.Alarm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.FenceID != nil && *a.FenceID == f.failFence {
		return errors.New("disk full")
	}
	if f.unique {
		for _, existing := range f.alarms {
			if existing.DeviceID == a.DeviceID && *existing.FenceID == *a.FenceID && existing.Status == models.AlarmStatusPending {
				return repository.ErrPendingAlarmExists
			}
		}
	}
	a.ID = int64(len(f.alarms) + 1)
	f.alarms = append(f.alarms, *a)
	return nil
}

func (f *fakeAlarms) all() []models.Alarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Alarm(nil), f.alarms...)
}

const square = `[[0,0],[0,10],[10,10],[10,0]]`

func fixedClock(hour int) MonitorOption {
	return WithClock(func() time.Time { return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC) })
}

func device(id string, lat, lng float64) models.Device {
	return models.Device{ID: id, Name: "Helmet " + id, LastLatitude: &lat, LastLongitude: &lng}
}

func noEntry(id int64) models.Fence {
	return models.Fence{ID: id, Name: "pit", Shape: models.ShapePolygon, Behavior: models.BehaviorNoEntry,
		CoordinatesJSON: square, AlarmLevel: models.LevelHigh, IsActive: true}
}

func TestCheckFenceStatus_DedupIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	devices := newFakeDevices(models.Device{ID: "d1", Name: "Helmet 1"})
	fences := newFakeFences(noEntry(1))
	alarms := &fakeAlarms{}
	m := NewMonitorService(devices, fences, alarms, fixedClock(12), WithLocation(time.UTC))

	res, err := m.CheckFenceStatus(ctx, "d1", 5, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, res.ViolatedFences)
	require.Equal(t, 1, res.AlarmsRaised)

	res, err = m.CheckFenceStatus(ctx, "d1", 5, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, res.ViolatedFences)
	require.Zero(t, res.AlarmsRaised)

	got := alarms.all()
	require.Len(t, got, 1)
	require.Equal(t, models.AlarmTypeFenceEntry, got[0].AlarmType)
	require.Equal(t, models.LevelHigh, got[0].Severity)
	require.Equal(t, models.AlarmStatusPending, got[0].Status)
	require.Equal(t, "Device Helmet 1 entered restricted area: pit", got[0].Description)
	require.Equal(t, "5.000000, 5.000000", got[0].Location)
	require.Equal(t, 1, fences.count(1))

	// Leaving the fence drops the count; the pending alarm stays for the operator
	_, err = m.CheckFenceStatus(ctx, "d1", 50, 50)
	require.NoError(t, err)
	require.Zero(t, fences.count(1))
	require.Len(t, alarms.all(), 1)
}

func TestCheckFenceStatus_ConcurrentUpdatesRaiseOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	devices := newFakeDevices(models.Device{ID: "d1", Name: "Helmet 1"})
	alarms := &fakeAlarms{}
	m := NewMonitorService(devices, newFakeFences(noEntry(1)), alarms, fixedClock(12))

	errs := make(chan error, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.CheckFenceStatus(ctx, "d1", 5, 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, alarms.all(), 1)
}

func TestCheckFenceStatus_UnknownDevice(t *testing.T) {
	t.Parallel()

	m := NewMonitorService(newFakeDevices(), newFakeFences(noEntry(1)), &fakeAlarms{})

	_, err := m.CheckFenceStatus(context.Background(), "ghost", 5, 5)
	require.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCheckFenceStatus_AlarmFailureDoesNotAbortPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	second := noEntry(2)
	second.Name = "crane"
	fences := newFakeFences(noEntry(1), second)
	alarms := &fakeAlarms{failFence: 1}
	m := NewMonitorService(newFakeDevices(models.Device{ID: "d1"}), fences, alarms, fixedClock(12))

	res, err := m.CheckFenceStatus(ctx, "d1", 5, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, res.ViolatedFences)
	require.Equal(t, 1, res.AlarmsRaised)

	got := alarms.all()
	require.Len(t, got, 1)
	require.Equal(t, int64(2), *got[0].FenceID)
	require.Equal(t, "Device d1 entered restricted area: crane", got[0].Description)

	require.Equal(t, 1, fences.count(1))
	require.Equal(t, 1, fences.count(2))
}

func TestCheckFenceStatus_SkipsDormantFences(t *testing.T) {
	t.Parallel()

	fence := noEntry(1)
	fence.EffectiveTime = "9-17"
	fences := newFakeFences(fence)
	alarms := &fakeAlarms{}
	m := NewMonitorService(newFakeDevices(models.Device{ID: "d1"}), fences, alarms, fixedClock(20))

	res, err := m.CheckFenceStatus(context.Background(), "d1", 5, 5)
	require.NoError(t, err)
	require.Zero(t, res.FencesEvaluated)
	require.Empty(t, alarms.all())
	require.Zero(t, fences.count(1))
}

func TestRecomputeOccupancy_DormantFenceIsZero(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fence := noEntry(1)
	fence.EffectiveTime = "9-17"
	devices := newFakeDevices(device("a", 1, 1), device("b", 2, 2), device("c", 3, 3), device("out", 50, 50))
	fences := newFakeFences(fence)

	night := NewMonitorService(devices, fences, &fakeAlarms{}, fixedClock(20))
	n, err := night.RecomputeOccupancy(ctx, &fence)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, fences.count(1))

	noon := NewMonitorService(devices, fences, &fakeAlarms{}, fixedClock(12))
	n, err = noon.RecomputeOccupancy(ctx, &fence)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 3, fences.count(1))
}

func TestRecomputeOccupancy_OvernightWindow(t *testing.T) {
	t.Parallel()

	fence := noEntry(1)
	fence.EffectiveTime = "22-6"
	devices := newFakeDevices(device("a", 1, 1))

	for hour, want := range map[int]int{23: 1, 2: 1, 12: 0} {
		m := NewMonitorService(devices, newFakeFences(fence), &fakeAlarms{}, fixedClock(hour))
		n, err := m.RecomputeOccupancy(context.Background(), &fence)
		require.NoError(t, err)
		require.Equal(t, want, n, "hour %d", hour)
	}
}

func TestOnFenceChanged_RaisesForExistingPositions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	devices := newFakeDevices(device("in", 5, 5), device("out1", 20, 20), device("out2", -5, 3),
		models.Device{ID: "never-reported"})
	fence := models.Fence{ID: 9, Name: "yard", Shape: models.ShapePolygon, Behavior: models.BehaviorNoExit,
		CoordinatesJSON: square, AlarmLevel: models.LevelLow, IsActive: true}
	fences := newFakeFences(fence)
	alarms := &fakeAlarms{unique: true}
	m := NewMonitorService(devices, fences, alarms, fixedClock(12))

	res, err := m.OnFenceChanged(ctx, &fence)
	require.NoError(t, err)
	require.Equal(t, 2, res.Violators)
	require.Equal(t, 2, res.AlarmsRaised)
	require.Equal(t, 2, fences.count(9))

	for _, a := range alarms.all() {
		require.Equal(t, models.AlarmTypeFenceExit, a.AlarmType)
		require.Equal(t, models.LevelLow, a.Severity)
		require.Contains(t, a.Description, "left designated area: yard")
	}

	// Re-running the same definition adds nothing
	res, err = m.OnFenceChanged(ctx, &fence)
	require.NoError(t, err)
	require.Equal(t, 2, res.Violators)
	require.Zero(t, res.AlarmsRaised)
	require.Len(t, alarms.all(), 2)
}

func TestOnFenceChanged_InactiveFenceZeroesCount(t *testing.T) {
	t.Parallel()

	fence := noEntry(1)
	fences := newFakeFences(fence)
	fences.counts[1] = 4
	fence.IsActive = false
	alarms := &fakeAlarms{}
	m := NewMonitorService(newFakeDevices(device("a", 5, 5)), fences, alarms, fixedClock(12))

	res, err := m.OnFenceChanged(context.Background(), &fence)
	require.NoError(t, err)
	require.Zero(t, res.Violators)
	require.Zero(t, fences.count(1))
	require.Empty(t, alarms.all())
}

func TestOnFenceChanged_RegionScopedNoExit(t *testing.T) {
	t.Parallel()

	regionID := int64(3)
	fence := models.Fence{ID: 1, Name: "safe zone", ProjectRegionID: &regionID, Shape: models.ShapePolygon,
		Behavior: models.BehaviorNoExit, CoordinatesJSON: square, AlarmLevel: models.LevelMedium, IsActive: true}
	fences := newFakeFences(fence)
	fences.regions[regionID] = &models.ProjectRegion{ID: regionID, CoordinatesJSON: `[[-20,-20],[-20,20],[20,20],[20,-20]]`}

	devices := newFakeDevices(device("inside-both", 5, 5), device("strayed", 15, 15), device("off-site", 40, 40))
	alarms := &fakeAlarms{}
	m := NewMonitorService(devices, fences, alarms, fixedClock(12))

	res, err := m.OnFenceChanged(context.Background(), &fence)
	require.NoError(t, err)
	require.Equal(t, 1, res.Violators)

	got := alarms.all()
	require.Len(t, got, 1)
	require.Equal(t, "strayed", got[0].DeviceID)

	// Dangling region reference resolves to no violation
	delete(fences.regions, regionID)
	res, err = m.OnFenceChanged(context.Background(), &fence)
	require.NoError(t, err)
	require.Zero(t, res.Violators)
	require.Zero(t, fences.count(1))
}

func TestOnFenceChanged_MalformedGeometry(t *testing.T) {
	t.Parallel()

	fence := models.Fence{ID: 1, Shape: models.ShapePolygon, Behavior: models.BehaviorNoExit,
		CoordinatesJSON: `[[0,0],[oops]]`, IsActive: true}
	fences := newFakeFences(fence)
	alarms := &fakeAlarms{}
	m := NewMonitorService(newFakeDevices(device("a", 50, 50)), fences, alarms, fixedClock(12))

	res, err := m.OnFenceChanged(context.Background(), &fence)
	require.NoError(t, err)
	require.Zero(t, res.Violators)
	require.Empty(t, alarms.all())
}

func TestRecomputeAll(t *testing.T) {
	t.Parallel()

	dormant := noEntry(3)
	dormant.EffectiveTime = "1-2"
	inactive := noEntry(4)
	inactive.IsActive = false
	fences := newFakeFences(noEntry(1), noEntry(2), dormant, inactive)
	devices := newFakeDevices(device("a", 5, 5), device("b", 6, 6), device("c", 50, 50))
	alarms := &fakeAlarms{unique: true}
	m := NewMonitorService(devices, fences, alarms, fixedClock(12), WithRecomputeWorkers(2))

	res, err := m.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.Fences)
	require.Equal(t, 4, res.Violators)
	require.Equal(t, 4, res.AlarmsRaised)

	require.Equal(t, 2, fences.count(1))
	require.Equal(t, 2, fences.count(2))
	require.Zero(t, fences.count(3))
}
