package prometheus

import "github.com/prometheus/client_golang/prometheus"

// Monitor represents a Prometheus monitor
// It contains Prometheus registry and all available metrics
type Monitor struct {
	Registry *prometheus.Registry

	Runs              *prometheus.CounterVec
	LastRun           *prometheus.GaugeVec
	LastSuccess       *prometheus.GaugeVec
	StageDuration     *prometheus.HistogramVec
	Entries           *prometheus.GaugeVec
	TranslationMisses *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec

	AiInputTokens  *prometheus.CounterVec
	AiOutputTokens *prometheus.CounterVec
}

// New creates a new Monitor
func New() *Monitor {
	reg := prometheus.NewRegistry()
	monitor := &Monitor{
		Registry: reg,

		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_runs_total",
			Help: "Number of pipeline runs by result",
		}, []string{"result"}),

		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_last_run_timestamp",
			Help: "Unix time of the last finished run",
		}, []string{}),

		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_last_success_timestamp",
			Help: "Unix time of the last published report",
		}, []string{}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"stage"}),

		Entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_entries",
			Help: "Number of cities extracted by the last scrape",
		}, []string{}),

		TranslationMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_translation_misses_total",
			Help: "City names missing from the static table",
		}, []string{}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_telegram_messages_total",
			Help: "Telegram API calls by method",
		}, []string{"method"}),

		AiInputTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ai_input_tokens_total",
			Help: "Input tokens billed by the text generation provider",
		}, []string{"provider"}),

		AiOutputTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_ai_output_tokens_total",
			Help: "Output tokens billed by the text generation provider",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		monitor.Runs,
		monitor.LastRun,
		monitor.LastSuccess,
		monitor.StageDuration,
		monitor.Entries,
		monitor.TranslationMisses,
		monitor.MessagesSent,
		monitor.AiInputTokens,
		monitor.AiOutputTokens,
	)

	return monitor
}
