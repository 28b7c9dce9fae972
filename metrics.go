// Package objcore is the root package: the Kernel aggregate that wires the
// frame allocator, process table, and syscall surface together, plus the
// Metrics/Observer pair every subsystem reports through. Adapted from the
// teacher's root-package Device/Metrics/Observer shape, retargeted from
// block-device I/O counters to kernel object/IPC counters.
package objcore

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational statistics for one Kernel instance: process
// lifecycle, handle-table activity, and I/O queue throughput, the same
// counter-bank shape the teacher's Metrics uses for device I/O.
type Metrics struct {
	ProcessesSpawned atomic.Uint64
	ProcessesExited  atomic.Uint64

	AllocOps    atomic.Uint64
	AllocBytes  atomic.Uint64
	AllocErrors atomic.Uint64

	HandleOps    atomic.Uint64
	HandleErrors atomic.Uint64

	IOQueueProcessed    atomic.Uint64 // process_io_queue/wait_io_queue calls
	IOQueueCompletions  atomic.Uint64
	IOQueueDepthTotal   atomic.Uint64 // cumulative pending-vector samples
	IOQueueDepthCount   atomic.Uint64
	IOQueueMaxDepth     atomic.Uint32

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a Metrics instance stamped with the current time as
// its start.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordAlloc records one alloc/alloc_dma syscall.
func (m *Metrics) RecordAlloc(bytes uint64, success bool) {
	m.AllocOps.Add(1)
	if success {
		m.AllocBytes.Add(bytes)
	} else {
		m.AllocErrors.Add(1)
	}
}

// RecordHandleOp records one handle-table syscall (duplicate_handle,
// create_root, create_io_queue, map_object, ...).
func (m *Metrics) RecordHandleOp(success bool) {
	m.HandleOps.Add(1)
	if !success {
		m.HandleErrors.Add(1)
	}
}

// RecordIOQueueProcess records one process_io_queue/wait_io_queue call,
// the pending vector's depth at that moment, and how many completions it
// produced.
func (m *Metrics) RecordIOQueueProcess(pendingDepth int, completions int) {
	m.IOQueueProcessed.Add(1)
	m.IOQueueCompletions.Add(uint64(completions))
	m.IOQueueDepthTotal.Add(uint64(pendingDepth))
	m.IOQueueDepthCount.Add(1)
	for {
		current := m.IOQueueMaxDepth.Load()
		if uint32(pendingDepth) <= current {
			break
		}
		if m.IOQueueMaxDepth.CompareAndSwap(current, uint32(pendingDepth)) {
			break
		}
	}
}

// RecordProcessSpawned/RecordProcessExited track the process table's size
// over time.
func (m *Metrics) RecordProcessSpawned() { m.ProcessesSpawned.Add(1) }
func (m *Metrics) RecordProcessExited()  { m.ProcessesExited.Add(1) }

// Stop marks the kernel instance as stopped.
func (m *Metrics) Stop() { m.StopTime.Store(time.Now().UnixNano()) }

// MetricsSnapshot is a point-in-time copy of Metrics, safe to hand to a
// caller without further synchronization.
type MetricsSnapshot struct {
	ProcessesLive    uint64
	ProcessesSpawned uint64
	ProcessesExited  uint64

	AllocOps    uint64
	AllocBytes  uint64
	AllocErrors uint64

	HandleOps    uint64
	HandleErrors uint64

	IOQueueProcessed   uint64
	IOQueueCompletions uint64
	AvgIOQueueDepth    float64
	MaxIOQueueDepth    uint32

	UptimeNs uint64
}

// Snapshot computes a MetricsSnapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	spawned := m.ProcessesSpawned.Load()
	exited := m.ProcessesExited.Load()
	snap := MetricsSnapshot{
		ProcessesSpawned: spawned,
		ProcessesExited:  exited,
		ProcessesLive:    spawned - exited,
		AllocOps:         m.AllocOps.Load(),
		AllocBytes:       m.AllocBytes.Load(),
		AllocErrors:      m.AllocErrors.Load(),
		HandleOps:        m.HandleOps.Load(),
		HandleErrors:     m.HandleErrors.Load(),
		IOQueueProcessed: m.IOQueueProcessed.Load(),
		IOQueueCompletions: m.IOQueueCompletions.Load(),
		MaxIOQueueDepth:  m.IOQueueMaxDepth.Load(),
	}
	if count := m.IOQueueDepthCount.Load(); count > 0 {
		snap.AvgIOQueueDepth = float64(m.IOQueueDepthTotal.Load()) / float64(count)
	}
	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	return snap
}

// Observer lets a caller plug in its own metrics collection in place of the
// built-in Metrics, the same pluggable-sink shape the teacher's Observer
// interface gives its queue runners.
type Observer interface {
	ObserveAlloc(bytes uint64, success bool)
	ObserveHandleOp(success bool)
	ObserveIOQueueProcess(pendingDepth int, completions int)
	ObserveProcessSpawned()
	ObserveProcessExited()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveAlloc(uint64, bool)        {}
func (NoOpObserver) ObserveHandleOp(bool)             {}
func (NoOpObserver) ObserveIOQueueProcess(int, int)   {}
func (NoOpObserver) ObserveProcessSpawned()           {}
func (NoOpObserver) ObserveProcessExited()            {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct{ metrics *Metrics }

// NewMetricsObserver creates an Observer backed by m.
func NewMetricsObserver(m *Metrics) *MetricsObserver { return &MetricsObserver{metrics: m} }

func (o *MetricsObserver) ObserveAlloc(bytes uint64, success bool) {
	o.metrics.RecordAlloc(bytes, success)
}
func (o *MetricsObserver) ObserveHandleOp(success bool) { o.metrics.RecordHandleOp(success) }
func (o *MetricsObserver) ObserveIOQueueProcess(pendingDepth, completions int) {
	o.metrics.RecordIOQueueProcess(pendingDepth, completions)
}
func (o *MetricsObserver) ObserveProcessSpawned() { o.metrics.RecordProcessSpawned() }
func (o *MetricsObserver) ObserveProcessExited()  { o.metrics.RecordProcessExited() }

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
