// Package profiler - Stage timing and detection-count collectors injected
// into the post-processing pipeline.
package profiler

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Pipeline stage names reported to a Collector.
const (
	StagePriors     = "priors"
	StageDecode     = "decode"
	StageConfidence = "confidence"
	StageNMS        = "nms"
	StageSelect     = "select"
	StageAssemble   = "assemble"
	StageBatch      = "batch"
)

// Collector receives pipeline measurements. Implementations must be safe
// for concurrent use: images of a batch may be processed in parallel.
type Collector interface {
	// ObserveStage records the time one stage took.
	ObserveStage(stage string, duration time.Duration)
	// ObserveDetections records how many detections an image kept; kept is
	// negative when the image kept nothing.
	ObserveDetections(imageID, kept int)
}

// Nop discards every measurement.
type Nop struct{}

// ObserveStage implements Collector.
func (Nop) ObserveStage(string, time.Duration) {}

// ObserveDetections implements Collector.
func (Nop) ObserveDetections(int, int) {}

// StartStage begins timing a stage.
//
// Arguments:
// - c: The collector to report to
// - stage: The name of the stage to track
//
// Returns:
// - A function to call when the stage completes
func StartStage(c Collector, stage string) func() {
	start := time.Now()
	return func() {
		c.ObserveStage(stage, time.Since(start))
	}
}

// TimeTracker tracks timing statistics of one stage.
type TimeTracker struct {
	Name      string
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// Average returns the mean duration, or 0 before the first sample.
func (t TimeTracker) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Count)
}

// StageProfiler keeps in-memory per-stage timings and detection counts.
type StageProfiler struct {
	mu             sync.Mutex
	operationTimes map[string]*TimeTracker
	images         int
	emptyImages    int
	detections     int
}

// NewStageProfiler creates an empty profiler.
func NewStageProfiler() *StageProfiler {
	return &StageProfiler{operationTimes: make(map[string]*TimeTracker)}
}

// ObserveStage implements Collector.
func (p *StageProfiler) ObserveStage(stage string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[stage]
	if !exists {
		tracker = &TimeTracker{
			Name:    stage,
			MinTime: duration,
			MaxTime: duration,
		}
		p.operationTimes[stage] = tracker
	}

	tracker.TotalTime += duration
	tracker.Count++

	if duration < tracker.MinTime {
		tracker.MinTime = duration
	}
	if duration > tracker.MaxTime {
		tracker.MaxTime = duration
	}
}

// ObserveDetections implements Collector.
func (p *StageProfiler) ObserveDetections(_, kept int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.images++
	if kept <= 0 {
		p.emptyImages++
		return
	}
	p.detections += kept
}

// Stage returns a copy of the tracker of one stage.
func (p *StageProfiler) Stage(stage string) (TimeTracker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.operationTimes[stage]
	if !ok {
		return TimeTracker{}, false
	}
	return *tracker, true
}

// Counts returns the processed image, empty image and detection totals.
func (p *StageProfiler) Counts() (images, emptyImages, detections int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.images, p.emptyImages, p.detections
}

// WriteReport prints stage timings, sorted by stage name, and counts.
func (p *StageProfiler) WriteReport(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.operationTimes))
	for name := range p.operationTimes {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := fmt.Fprintf(w, "images=%d empty=%d detections=%d\n",
		p.images, p.emptyImages, p.detections); err != nil {
		return err
	}
	for _, name := range names {
		tracker := p.operationTimes[name]
		if _, err := fmt.Fprintf(w, "  %s: avg=%v, min=%v, max=%v, count=%d\n",
			name, tracker.Average().Truncate(time.Microsecond),
			tracker.MinTime.Truncate(time.Microsecond),
			tracker.MaxTime.Truncate(time.Microsecond),
			tracker.Count); err != nil {
			return err
		}
	}
	return nil
}
