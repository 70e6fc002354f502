package monitor

import (
	"RouteGrader/logger"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var (
	registry = prometheus.NewRegistry()

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})

	// RequestsTotal counts requests per surface ("grpc", "http") and method.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_requests_total",
		Help: "Total number of requests processed",
	}, []string{"surface", "method"})

	GradesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grader_grades_total",
		Help: "Predicted grades by label",
	}, []string{"grade"})

	LargeHoldsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grader_large_holds_total",
		Help: "Holds flagged as large by the grid mapper",
	})

	InferenceSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grader_inference_seconds",
		Help:    "Time spent mapping and classifying one route",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grader_sessions_active",
		Help: "Open grading sessions",
	})
)

func init() {
	registry.MustRegister(memUsage, cpuUsage, RequestsTotal, GradesTotal, LargeHoldsTotal, InferenceSeconds, SessionsActive)
}

// Handler serves the metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveGrade records one classification.
func ObserveGrade(grade string, largeHolds int, elapsed time.Duration) {
	GradesTotal.WithLabelValues(grade).Inc()
	LargeHoldsTotal.Add(float64(largeHolds))
	InferenceSeconds.Observe(elapsed.Seconds())
}

func checkProcessInfo(p *process.Process) {
	if memInfo, err := p.MemoryInfo(); err == nil {
		memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	if cpuPercent, err := p.CPUPercent(); err == nil {
		cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}

// StartMon serves /metrics on port and samples the process every 500ms until
// ctx is cancelled.
func StartMon(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("metrics server stopped", zap.Error(err))
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Log().Warn("process metrics disabled", zap.Error(err))
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case <-ticker.C:
			if p != nil {
				checkProcessInfo(p)
			}
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log().Error("metrics server shutdown", zap.Error(err))
	}
}
