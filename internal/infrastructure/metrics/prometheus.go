// Package metrics публикует метрики линий в Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coil-vision/internal/domain/port"
)

// Collector набор метрик сервиса на собственном реестре
type Collector struct {
	registry *prometheus.Registry

	frameLoss          prometheus.Counter
	framesDropped      *prometheus.CounterVec
	loopExecution      prometheus.Gauge
	largestWidth       *prometheus.GaugeVec
	coilWidth          *prometheus.GaugeVec
	measurementsReject *prometheus.CounterVec
}

// NewCollector регистрирует метрики
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frameLoss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame_loss_total",
			Help: "Frames missing between consecutive frame IDs",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_dropped_total",
			Help: "Frames dropped before producing a crop",
		}, []string{"reason"}),
		loopExecution: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loop_execution_time_seconds",
			Help: "Duration of the last frame pipeline iteration",
		}),
		largestWidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "largest_measurement_width",
			Help: "Crop window width held by the stabilizer, px",
		}, []string{"line"}),
		coilWidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coil_width_mm",
			Help: "Last accepted coil width",
		}, []string{"line"}),
		measurementsReject: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "measurement_rejected_total",
			Help: "Coil measurements outside physical bounds",
		}, []string{"line"}),
	}
	c.registry.MustRegister(
		c.frameLoss,
		c.framesDropped,
		c.loopExecution,
		c.largestWidth,
		c.coilWidth,
		c.measurementsReject,
	)
	return c
}

// FramesLost добавляет пропущенные кадры
func (c *Collector) FramesLost(n int64) {
	if n > 0 {
		c.frameLoss.Add(float64(n))
	}
}

// FrameDropped считает отброшенный кадр
func (c *Collector) FrameDropped(reason string) {
	c.framesDropped.WithLabelValues(reason).Inc()
}

// LoopDuration время последней итерации
func (c *Collector) LoopDuration(d time.Duration) {
	c.loopExecution.Set(d.Seconds())
}

// CropWidth ширина окна стабилизатора на линии
func (c *Collector) CropWidth(line string, px int) {
	c.largestWidth.WithLabelValues(line).Set(float64(px))
}

// CoilWidth ширина рулона на линии
func (c *Collector) CoilWidth(line string, mm float64) {
	c.coilWidth.WithLabelValues(line).Set(mm)
}

// MeasurementRejected считает отброшенное измерение
func (c *Collector) MeasurementRejected(line string) {
	c.measurementsReject.WithLabelValues(line).Inc()
}

// Handler HTTP-обработчик /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve отдаёт /metrics на addr до отмены ctx
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "metrics server %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown metrics server")
		}
		return nil
	}
}

var _ port.Metrics = (*Collector)(nil)
