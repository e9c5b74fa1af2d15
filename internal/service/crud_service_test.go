package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/site-fence-backend-go/internal/database"
	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

type testEnv struct {
	devices   *repository.DeviceRepository
	fences    *repository.FenceRepository
	alarms    *repository.AlarmRepository
	monitor   *MonitorService
	fenceSvc  *FenceService
	regionSvc *RegionService
	alarmSvc  *AlarmService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "fence.db")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = database.NewMigrationManager(conn).RunMigrations(context.Background())
	require.NoError(t, err)

	return wireEnv(conn)
}

func wireEnv(conn *sql.DB) *testEnv {
	env := &testEnv{
		devices: repository.NewDeviceRepository(conn),
		fences:  repository.NewFenceRepository(conn),
		alarms:  repository.NewAlarmRepository(conn),
	}
	regions := repository.NewRegionRepository(conn)
	env.monitor = NewMonitorService(env.devices, env.fences, env.alarms, WithLocation(time.UTC))
	env.fenceSvc = NewFenceService(env.fences, env.monitor)
	env.regionSvc = NewRegionService(regions, env.fences, env.monitor)
	env.alarmSvc = NewAlarmService(env.alarms)
	env.dashboard = NewDashboardService(env.fences, env.devices, env.alarms, time.UTC)
	return env
}

func (e *testEnv) place(t *testing.T, id string, lat, lng float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.devices.Upsert(ctx, &models.Device{ID: id, Name: id}))
	require.NoError(t, e.devices.SetPosition(ctx, id, lat, lng, time.Now()))
}

func TestFenceService_CreateRaisesForExistingDevices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.place(t, "inside", 5, 5)
	env.place(t, "outside", 50, 50)

	view, err := env.fenceSvc.Create(ctx, &models.FenceInput{
		Name: "pit", Behavior: models.BehaviorNoEntry, CoordinatesJSON: square,
	})
	require.NoError(t, err)
	require.Equal(t, models.ShapePolygon, view.Shape)
	require.Equal(t, models.LevelMedium, view.AlarmLevel)
	require.True(t, view.IsActive)
	require.Equal(t, 1, view.ViolatorCount)
	require.Equal(t, &models.LatLng{Lat: 5, Lng: 5}, view.Centroid)
	require.Greater(t, view.AreaSquareMeters, 0.0)

	stored, err := env.fenceSvc.Get(ctx, view.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.ViolatorCount)

	resp, err := env.alarmSvc.List(ctx, models.AlarmFilter{DeviceID: "inside"})
	require.NoError(t, err)
	require.EqualValues(t, 1, resp.Total)
	require.Equal(t, models.AlarmTypeFenceEntry, resp.Data[0].AlarmType)
}

func TestFenceService_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)

	for name, in := range map[string]*models.FenceInput{
		"circle without radius": {Name: "c", Shape: models.ShapeCircle, CoordinatesJSON: `[1,2]`},
		"circle zero radius":    {Name: "c", Shape: models.ShapeCircle, CoordinatesJSON: `[1,2]`, Radius: new(float64)},
		"two-point polygon":     {Name: "p", CoordinatesJSON: `[[0,0],[1,1]]`},
		"bad json":              {Name: "p", CoordinatesJSON: `[[0,0],`},
		"unknown behavior":      {Name: "p", Behavior: "Stay", CoordinatesJSON: square},
		"missing region":        {Name: "p", CoordinatesJSON: square, ProjectRegionID: func() *int64 { v := int64(42); return &v }()},
	} {
		_, err := env.fenceSvc.Create(ctx, in)
		require.ErrorIs(t, err, ErrInvalidFence, name)
		require.ErrorIs(t, err, models.ErrValidation, name)
	}
}

func TestFenceService_PatchSemantics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.place(t, "d1", 5, 5)

	created, err := env.fenceSvc.Create(ctx, &models.FenceInput{
		Name: "zone", Behavior: models.BehaviorNoExit, CoordinatesJSON: square, EffectiveTime: "1-2", Remark: "east side",
	})
	require.NoError(t, err)

	var patch models.FencePatch
	require.NoError(t, json.Unmarshal([]byte(`{"effectiveTime": null, "behavior": "No Entry"}`), &patch))

	updated, err := env.fenceSvc.Update(ctx, created.ID, &patch)
	require.NoError(t, err)
	require.Empty(t, updated.EffectiveTime)
	require.Equal(t, models.BehaviorNoEntry, updated.Behavior)
	require.Equal(t, "east side", updated.Remark)
	require.Equal(t, "zone", updated.Name)

	// Editing the behavior surfaces the existing violation at once
	require.Equal(t, 1, updated.ViolatorCount)
	pending, err := env.alarms.FindPending(ctx, "d1", created.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)

	require.NoError(t, json.Unmarshal([]byte(`{"name": null}`), &patch))
	_, err = env.fenceSvc.Update(ctx, created.ID, &patch)
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = env.fenceSvc.Update(ctx, 999, &models.FencePatch{})
	require.ErrorIs(t, err, ErrFenceNotFound)
}

func TestFenceService_DeleteKeepsAlarmHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.place(t, "d1", 5, 5)

	f, err := env.fenceSvc.Create(ctx, &models.FenceInput{Name: "pit", Behavior: models.BehaviorNoEntry, CoordinatesJSON: square})
	require.NoError(t, err)

	require.NoError(t, env.fenceSvc.Delete(ctx, f.ID))
	require.ErrorIs(t, env.fenceSvc.Delete(ctx, f.ID), ErrFenceNotFound)

	resp, err := env.alarmSvc.List(ctx, models.AlarmFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 1, resp.Total)
	require.Nil(t, resp.Data[0].FenceID)
}

func TestRegionService_DeleteDetachesAndReevaluates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.place(t, "off-site", 40, 40)

	region, err := env.regionSvc.Create(ctx, &models.RegionInput{Name: "site", CoordinatesJSON: `[[-20,-20],[-20,20],[20,20],[20,-20]]`})
	require.NoError(t, err)

	_, err = env.regionSvc.Create(ctx, &models.RegionInput{Name: "bad", CoordinatesJSON: `[[0,0]]`})
	require.ErrorIs(t, err, ErrInvalidRegion)

	f, err := env.fenceSvc.Create(ctx, &models.FenceInput{
		Name: "yard", ProjectRegionID: &region.ID, Behavior: models.BehaviorNoExit, CoordinatesJSON: square,
	})
	require.NoError(t, err)
	// Outside the region: not violating while scoped
	require.Zero(t, f.ViolatorCount)

	require.NoError(t, env.regionSvc.Delete(ctx, region.ID))
	require.ErrorIs(t, env.regionSvc.Delete(ctx, region.ID), ErrRegionNotFound)

	got, err := env.fenceSvc.Get(ctx, f.ID)
	require.NoError(t, err)
	require.Nil(t, got.ProjectRegionID)
	// Now a global No Exit fence
	require.Equal(t, 1, got.ViolatorCount)
}

func TestAlarmService_Resolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.place(t, "d1", 5, 5)

	_, err := env.fenceSvc.Create(ctx, &models.FenceInput{Name: "pit", Behavior: models.BehaviorNoEntry, CoordinatesJSON: square})
	require.NoError(t, err)

	resp, err := env.alarmSvc.List(ctx, models.AlarmFilter{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	id := resp.Data[0].ID

	summary, err := env.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DashboardSummary{FenceCount: 1, DeviceCount: 1, AlarmCountToday: 1, PendingAlarms: 1}, *summary)

	resolved, err := env.alarmSvc.Update(ctx, id, &models.AlarmPatch{Status: models.Value(models.AlarmStatusResolved)})
	require.NoError(t, err)
	require.Equal(t, models.AlarmStatusResolved, resolved.Status)
	require.NotNil(t, resolved.HandledAt)

	_, err = env.alarmSvc.Update(ctx, id, &models.AlarmPatch{Status: models.Value(models.AlarmStatusPending)})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = env.alarmSvc.Get(ctx, 999)
	require.ErrorIs(t, err, ErrAlarmNotFound)

	// A new episode may open once the previous alarm is resolved
	_, err = env.monitor.CheckFenceStatus(ctx, "d1", 5, 5)
	require.NoError(t, err)
	summary, err = env.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.PendingAlarms)
	require.EqualValues(t, 2, summary.AlarmCountToday)
}

func TestDeviceService_RegisterRejectsBlankID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewDeviceService(env.devices)

	_, err := svc.Register(ctx, &models.DeviceInput{ID: "   ", Name: "Helmet"})
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Register(ctx, &models.DeviceInput{ID: "h1", Name: " "})
	require.ErrorIs(t, err, models.ErrValidation)

	n, err := env.devices.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	d, err := svc.Register(ctx, &models.DeviceInput{ID: " h1 ", Name: "Helmet"})
	require.NoError(t, err)
	require.Equal(t, "h1", d.ID)
}
