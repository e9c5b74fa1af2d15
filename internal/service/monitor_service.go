package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/site-fence-backend-go/internal/geofence"
	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/metrics"
	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// CheckResult summarizes a reactive check for one device
type CheckResult struct {
	DeviceID        string  `json:"deviceId"`
	FencesEvaluated int     `json:"fencesEvaluated"`
	ViolatedFences  []int64 `json:"violatedFences"`
	AlarmsRaised    int     `json:"alarmsRaised"`
}

// PassResult summarizes a bulk pass over one or more fences
type PassResult struct {
	Fences       int `json:"fences"`
	Violators    int `json:"violators"`
	AlarmsRaised int `json:"alarmsRaised"`
}

// MonitorService evaluates device positions against fences, raises
// deduplicated alarms and maintains each fence's violator count.
type MonitorService struct {
	devices DeviceStore
	fences  FenceStore
	dedup   *AlarmDeduplicator

	now      func() time.Time
	location *time.Location
	workers  int
}

// MonitorOption configures a MonitorService
type MonitorOption func(*MonitorService)

// WithClock overrides the time source
func WithClock(now func() time.Time) MonitorOption {
	return func(m *MonitorService) { m.now = now }
}

// WithLocation sets the time zone effective-time windows are read in
func WithLocation(loc *time.Location) MonitorOption {
	return func(m *MonitorService) {
		if loc != nil {
			m.location = loc
		}
	}
}

// WithRecomputeWorkers bounds how many fences RecomputeAll evaluates at once
func WithRecomputeWorkers(n int) MonitorOption {
	return func(m *MonitorService) {
		if n > 0 {
			m.workers = n
		}
	}
}

// NewMonitorService creates a monitor over the given stores
func NewMonitorService(devices DeviceStore, fences FenceStore, alarms AlarmStore, opts ...MonitorOption) *MonitorService {
	m := &MonitorService{
		devices:  devices,
		fences:   fences,
		dedup:    NewAlarmDeduplicator(alarms),
		now:      time.Now,
		location: time.Local,
		workers:  4,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MonitorService) clock() time.Time {
	return m.now().In(m.location)
}

// CheckFenceStatus stores a new position for a device and evaluates it
// against every active fence in its effective window. Each active fence's
// violator count is recomputed afterwards.
func (m *MonitorService) CheckFenceStatus(ctx context.Context, deviceID string, lat, lng float64) (*CheckResult, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluationPassDuration.WithLabelValues(metrics.ModeLocationUpdate).Observe(time.Since(start).Seconds())
	}()

	ctx = logger.WithKV(ctx, "device_id", deviceID)
	now := m.clock()

	device, err := m.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		logger.WarnKV(ctx, "device not found during fence check")
		return nil, ErrDeviceNotFound
	}

	if err := m.devices.SetPosition(ctx, deviceID, lat, lng, now); err != nil {
		return nil, fmt.Errorf("failed to store device position: %w", err)
	}
	device.LastLatitude, device.LastLongitude = &lat, &lng
	device.PositionUpdatedAt = &now

	fences, err := m.fences.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active fences: %w", err)
	}

	// Snapshot for violator counts, read after this device's position landed
	positioned, err := m.devices.ListPositioned(ctx)
	if err != nil {
		m.storeError(ctx, metrics.ErrKindStoreRead, "failed to list positioned devices", err)
		positioned = nil
	}

	result := &CheckResult{DeviceID: deviceID, ViolatedFences: []int64{}}
	for i := range fences {
		fence := &fences[i]
		fctx := logger.WithKV(ctx, "fence_id", fence.ID)

		if !m.enforced(fctx, fence, now) {
			m.writeCount(fctx, fence.ID, 0)
			continue
		}

		rule := m.compile(fctx, fence)
		result.FencesEvaluated++

		if rule.Violates(geofence.DevicePosition(device)) {
			result.ViolatedFences = append(result.ViolatedFences, fence.ID)
			if m.raise(fctx, fence, device, now) {
				result.AlarmsRaised++
			}
		}

		if positioned != nil {
			m.writeCount(fctx, fence.ID, countViolators(rule, positioned))
		}
	}

	return result, nil
}

// OnFenceChanged re-evaluates every positioned device against a fence that
// was just created or edited, so existing violations surface immediately,
// then stores the fence's violator count.
func (m *MonitorService) OnFenceChanged(ctx context.Context, fence *models.Fence) (*PassResult, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluationPassDuration.WithLabelValues(metrics.ModeFenceChanged).Observe(time.Since(start).Seconds())
	}()

	devices, err := m.devices.ListPositioned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list positioned devices: %w", err)
	}

	return m.evaluateFence(logger.WithKV(ctx, "fence_id", fence.ID), fence, devices, m.clock()), nil
}

// RecomputeOccupancy recomputes and stores a fence's violator count without
// raising alarms. A fence outside its effective window counts zero.
func (m *MonitorService) RecomputeOccupancy(ctx context.Context, fence *models.Fence) (int, error) {
	ctx = logger.WithKV(ctx, "fence_id", fence.ID)

	count := 0
	if m.enforced(ctx, fence, m.clock()) {
		devices, err := m.devices.ListPositioned(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list positioned devices: %w", err)
		}
		count = countViolators(m.compile(ctx, fence), devices)
	}

	if err := m.fences.SetViolatorCount(ctx, fence.ID, count); err != nil {
		return count, fmt.Errorf("failed to store violator count: %w", err)
	}
	return count, nil
}

// RecomputeAll runs the fence-changed pass over every active fence. Fences
// are evaluated concurrently, bounded by the configured worker count.
func (m *MonitorService) RecomputeAll(ctx context.Context) (*PassResult, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluationPassDuration.WithLabelValues(metrics.ModeRecompute).Observe(time.Since(start).Seconds())
	}()

	fences, err := m.fences.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active fences: %w", err)
	}
	devices, err := m.devices.ListPositioned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list positioned devices: %w", err)
	}

	now := m.clock()
	total := &PassResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range fences {
		fence := &fences[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := m.evaluateFence(logger.WithKV(gctx, "fence_id", fence.ID), fence, devices, now)

			mu.Lock()
			total.Fences += res.Fences
			total.Violators += res.Violators
			total.AlarmsRaised += res.AlarmsRaised
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}

	logger.InfoKV(ctx, "recomputed fences",
		"fences", total.Fences, "violators", total.Violators, "alarms_raised", total.AlarmsRaised)
	return total, nil
}

// evaluateFence raises alarms for every violating device and stores the
// violator count. Store failures are logged and do not stop the pass.
func (m *MonitorService) evaluateFence(ctx context.Context, fence *models.Fence, devices []models.Device, now time.Time) *PassResult {
	res := &PassResult{Fences: 1}

	if !m.enforced(ctx, fence, now) {
		m.writeCount(ctx, fence.ID, 0)
		return res
	}

	rule := m.compile(ctx, fence)
	for i := range devices {
		device := &devices[i]
		if !rule.Violates(geofence.DevicePosition(device)) {
			continue
		}
		res.Violators++
		if m.raise(logger.WithKV(ctx, "device_id", device.ID), fence, device, now) {
			res.AlarmsRaised++
		}
	}

	m.writeCount(ctx, fence.ID, res.Violators)
	if res.AlarmsRaised > 0 {
		logger.InfoKV(ctx, "fence check raised alarms", "violators", res.Violators, "alarms_raised", res.AlarmsRaised)
	}
	return res
}

func countViolators(rule *geofence.Rule, devices []models.Device) int {
	count := 0
	for i := range devices {
		if rule.Violates(geofence.DevicePosition(&devices[i])) {
			count++
		}
	}
	return count
}

// enforced reports whether fence rules apply now, logging a window that
// could not be parsed. Such a fence stays enforced.
func (m *MonitorService) enforced(ctx context.Context, fence *models.Fence, now time.Time) bool {
	on, err := geofence.Enforced(fence, now)
	if err != nil {
		metrics.EvaluationErrorsTotal.WithLabelValues(metrics.ErrKindTimeWindow).Inc()
		logger.WarnKV(ctx, "unparsable effective time, fence stays enforced",
			"effective_time", fence.EffectiveTime, "error", err)
	}
	return on
}

// compile builds the evaluation rule for a fence, resolving its region
func (m *MonitorService) compile(ctx context.Context, fence *models.Fence) *geofence.Rule {
	var region *models.ProjectRegion
	if fence.ProjectRegionID != nil {
		r, err := m.fences.GetRegion(ctx, *fence.ProjectRegionID)
		if err != nil {
			// Treated like a missing region: no violations until it resolves
			m.storeError(ctx, metrics.ErrKindStoreRead, "failed to load project region", err)
		}
		region = r
	}

	rule := geofence.Compile(fence, region)
	if rule.GeometryErr != nil {
		metrics.EvaluationErrorsTotal.WithLabelValues(metrics.ErrKindGeometry).Inc()
		logger.WarnKV(ctx, "fence geometry is not evaluable", "error", rule.GeometryErr)
	}
	if rule.RegionErr != nil {
		metrics.EvaluationErrorsTotal.WithLabelValues(metrics.ErrKindRegion).Inc()
		logger.WarnKV(ctx, "fence region is not evaluable", "error", rule.RegionErr)
	}
	return rule
}

// raise stores a deduplicated alarm and reports whether a new one was created
func (m *MonitorService) raise(ctx context.Context, fence *models.Fence, device *models.Device, now time.Time) bool {
	pos := geofence.DevicePosition(device)
	v := &Violation{Fence: fence, Device: device, Position: *pos, At: now}

	created, err := m.dedup.Raise(ctx, v)
	if err != nil {
		m.storeError(ctx, metrics.ErrKindAlarmWrite, "failed to create alarm", err)
		return false
	}
	if !created {
		metrics.AlarmsSuppressedTotal.Inc()
		return false
	}

	metrics.AlarmsRaisedTotal.WithLabelValues(v.AlarmType()).Inc()
	logger.WarnKV(ctx, "violation detected", "alarm_type", v.AlarmType(), "description", v.Description())
	return true
}

func (m *MonitorService) writeCount(ctx context.Context, fenceID int64, count int) {
	if err := m.fences.SetViolatorCount(ctx, fenceID, count); err != nil {
		m.storeError(ctx, metrics.ErrKindCountWrite, "failed to store violator count", err)
	}
}

func (m *MonitorService) storeError(ctx context.Context, kind, message string, err error) {
	metrics.EvaluationErrorsTotal.WithLabelValues(kind).Inc()
	logger.ErrorKV(ctx, message, "error", err)
}
