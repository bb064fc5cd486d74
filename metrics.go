package scenecore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// observability package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordSpawn is called after each spawn.
	RecordSpawn(duration time.Duration, err error)

	// RecordDespawn is called after each despawn.
	RecordDespawn(duration time.Duration, err error)

	// RecordUpdate is called after each update pass over the live entities.
	RecordUpdate(entities int, duration time.Duration, err error)

	// RecordCapture is called after each frame capture. bytes is the number
	// of bytes written to the store.
	RecordCapture(bytes int, duration time.Duration, err error)

	// RecordAlloc is called after each tiered allocation.
	RecordAlloc(tier string, size int, err error)

	// RecordFree is called after each tiered free.
	RecordFree(tier string, size int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSpawn(time.Duration, error)        {}
func (NoopMetricsCollector) RecordDespawn(time.Duration, error)      {}
func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordCapture(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAlloc(string, int, error)          {}
func (NoopMetricsCollector) RecordFree(string, int, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SpawnCount        atomic.Int64
	SpawnErrors       atomic.Int64
	DespawnCount      atomic.Int64
	DespawnErrors     atomic.Int64
	UpdateCount       atomic.Int64
	UpdateErrors      atomic.Int64
	UpdateEntities    atomic.Int64
	UpdateTotalNanos  atomic.Int64
	CaptureCount      atomic.Int64
	CaptureErrors     atomic.Int64
	CaptureBytes      atomic.Int64
	CaptureTotalNanos atomic.Int64
	AllocCount        atomic.Int64
	AllocErrors       atomic.Int64
	AllocBytes        atomic.Int64
	FreeCount         atomic.Int64
	FreeErrors        atomic.Int64
}

// RecordSpawn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpawn(_ time.Duration, err error) {
	b.SpawnCount.Add(1)
	if err != nil {
		b.SpawnErrors.Add(1)
	}
}

// RecordDespawn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDespawn(_ time.Duration, err error) {
	b.DespawnCount.Add(1)
	if err != nil {
		b.DespawnErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(entities int, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateEntities.Add(int64(entities))
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordCapture implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCapture(bytes int, duration time.Duration, err error) {
	b.CaptureCount.Add(1)
	b.CaptureTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CaptureErrors.Add(1)
		return
	}
	b.CaptureBytes.Add(int64(bytes))
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(_ string, size int, err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(size))
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(_ string, _ int, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SpawnCount:      b.SpawnCount.Load(),
		SpawnErrors:     b.SpawnErrors.Load(),
		DespawnCount:    b.DespawnCount.Load(),
		DespawnErrors:   b.DespawnErrors.Load(),
		UpdateCount:     b.UpdateCount.Load(),
		UpdateErrors:    b.UpdateErrors.Load(),
		UpdateEntities:  b.UpdateEntities.Load(),
		UpdateAvgNanos:  avg(b.UpdateTotalNanos.Load(), b.UpdateCount.Load()),
		CaptureCount:    b.CaptureCount.Load(),
		CaptureErrors:   b.CaptureErrors.Load(),
		CaptureBytes:    b.CaptureBytes.Load(),
		CaptureAvgNanos: avg(b.CaptureTotalNanos.Load(), b.CaptureCount.Load()),
		AllocCount:      b.AllocCount.Load(),
		AllocErrors:     b.AllocErrors.Load(),
		AllocBytes:      b.AllocBytes.Load(),
		FreeCount:       b.FreeCount.Load(),
		FreeErrors:      b.FreeErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SpawnCount      int64
	SpawnErrors     int64
	DespawnCount    int64
	DespawnErrors   int64
	UpdateCount     int64
	UpdateErrors    int64
	UpdateEntities  int64
	UpdateAvgNanos  int64
	CaptureCount    int64
	CaptureErrors   int64
	CaptureBytes    int64
	CaptureAvgNanos int64
	AllocCount      int64
	AllocErrors     int64
	AllocBytes      int64
	FreeCount       int64
	FreeErrors      int64
}
