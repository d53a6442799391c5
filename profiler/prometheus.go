package profiler

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports stage latencies and detection counts.
type PrometheusCollector struct {
	stageSeconds *prometheus.HistogramVec
	detections   prometheus.Counter
	emptyImages  prometheus.Counter
	keptPerImage *prometheus.GaugeVec
}

// NewPrometheusCollector registers the pipeline metrics on reg.
//
// Arguments:
// - reg: The registerer the metrics are added to
// - namespace: Metric name prefix, e.g. "rdetect"
//
// Returns:
// - The collector, or an error if any metric is already registered
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each post-processing stage",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"stage"}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detections kept across all images",
		}),
		emptyImages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_images_total",
			Help:      "Images that kept no detection",
		}),
		keptPerImage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "image_detections",
			Help:      "Detections kept for the last processed image with a given batch index",
		}, []string{"image"}),
	}

	for _, m := range []prometheus.Collector{c.stageSeconds, c.detections, c.emptyImages, c.keptPerImage} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveStage implements Collector.
func (c *PrometheusCollector) ObserveStage(stage string, duration time.Duration) {
	c.stageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveDetections implements Collector.
func (c *PrometheusCollector) ObserveDetections(imageID, kept int) {
	image := strconv.Itoa(imageID)
	if kept <= 0 {
		c.emptyImages.Inc()
		c.keptPerImage.WithLabelValues(image).Set(0)
		return
	}
	c.detections.Add(float64(kept))
	c.keptPerImage.WithLabelValues(image).Set(float64(kept))
}
