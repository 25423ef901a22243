package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	MetricsNamespace = "op_reporter"
)

var (
	Debug                bool = false
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "steps_total",
		Help:      "Count of recorded report steps",
	}, []string{
		"severity",
	})

	entriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "entries_total",
		Help:      "Count of report entries created",
	})

	screenshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "screenshots_total",
		Help:      "Count of screenshot captures",
	}, []string{
		"result",
	})

	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "flush_duration_seconds",
		Help:      "Time spent flushing report sinks",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	runEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_entries",
		Help:      "Entries per final status for a reporting run",
	}, []string{
		"run_id",
		"status",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordStep(severity types.Severity) {
	if !severity.IsValid() {
		log.Error("RecordStep - invalid severity", "severity", severity)
		return
	}
	stepsTotal.WithLabelValues(string(severity)).Inc()
}

func RecordEntryCreated() {
	entriesTotal.Inc()
}

func RecordScreenshot(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	screenshotsTotal.WithLabelValues(result).Inc()
}

func RecordFlush(d time.Duration) {
	flushDuration.Observe(d.Seconds())
}

// RecordRun sets the number of entries per final status for a run
func RecordRun(runID string, entries []types.EntrySnapshot) {
	counts := make(map[types.Severity]int)
	for _, e := range entries {
		counts[e.Status]++
	}
	for _, sev := range types.AllSeverities {
		runEntries.WithLabelValues(runID, string(sev)).Set(float64(counts[sev]))
	}
}
