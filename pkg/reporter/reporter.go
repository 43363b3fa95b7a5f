package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/ai"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/scraper"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/telegram"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/translate"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/weather"
	"github.com/sirupsen/logrus"
)

type Scraper interface {
	Scrape(ctx context.Context, names scraper.NameTranslator) (weather.Report, error)
}

type Translator interface {
	NewRun() *translate.Run
}

type Summarizer interface {
	Summarize(ctx context.Context, report weather.Report) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, text string, image []byte) error
}

type Alerter interface {
	SendFailure(ctx context.Context, at time.Time, runErr error) error
}

// Status describes the last finished run
type Status struct {
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Entries     int       `json:"entries"`
	Summary     string    `json:"summary,omitempty"`
}

// Reporter runs the whole pipeline: scrape, translate, summarize, publish
type Reporter struct {
	scraper    Scraper
	translator Translator
	summarizer Summarizer
	publisher  Publisher
	alerter    Alerter
	location   *time.Location

	mtx    sync.RWMutex
	status Status

	monitor *prometheus.Monitor
	logger  *logrus.Logger
}

func New(
	s Scraper,
	t Translator,
	sum Summarizer,
	p Publisher,
	a Alerter,
	location *time.Location,
	m *prometheus.Monitor,
	l *logrus.Logger,
) *Reporter {
	if location == nil {
		location = time.UTC
	}

	return &Reporter{
		scraper:    s,
		translator: t,
		summarizer: sum,
		publisher:  p,
		alerter:    a,
		location:   location,

		monitor: m,
		logger:  l,
	}
}

// Run executes one pipeline pass. Any stage failure aborts the pass,
// nothing is published without a summary.
func (r *Reporter) Run(ctx context.Context) error {
	started := time.Now()

	report, text, err := r.run(ctx, started)
	r.finish(ctx, started, report, text, err)

	return err
}

func (r *Reporter) run(ctx context.Context, started time.Time) (weather.Report, string, error) {
	names := r.translator.NewRun()

	var report weather.Report
	err := r.stage("scrape", func() error {
		var err error
		report, err = r.scraper.Scrape(ctx, names)
		return err
	})
	if err != nil {
		return report, "", err
	}
	if len(report.Entries) == 0 {
		return report, "", fmt.Errorf("%w: no weather data found", scraper.ErrScrape)
	}
	report.Date = started.In(r.location)
	r.logger.WithField("cities", len(report.Entries)).Info("weather scraped")

	var text string
	err = r.stage("summary", func() error {
		var err error
		text, err = r.summarizer.Summarize(ctx, report)
		return err
	})
	if err != nil {
		return report, "", err
	}

	err = r.stage("publish", func() error {
		return r.publisher.Publish(ctx, text, report.Map)
	})
	if err != nil {
		return report, text, err
	}

	return report, text, nil
}

func (r *Reporter) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	r.monitor.StageDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	if err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}

	return nil
}

func (r *Reporter) finish(ctx context.Context, started time.Time, report weather.Report, text string, err error) {
	now := time.Now()

	r.monitor.Runs.WithLabelValues(Result(err)).Inc()
	r.monitor.LastRun.WithLabelValues().Set(float64(now.Unix()))
	r.monitor.Entries.WithLabelValues().Set(float64(len(report.Entries)))

	r.mtx.Lock()
	r.status.LastRun = now
	r.status.Entries = len(report.Entries)
	if err == nil {
		r.status.LastSuccess = now
		r.status.LastError = ""
		r.status.Summary = text
	} else {
		r.status.LastError = err.Error()
	}
	r.mtx.Unlock()

	if err == nil {
		r.monitor.LastSuccess.WithLabelValues().Set(float64(now.Unix()))
		r.logger.WithField("summary", text).Info("weather report published")
		return
	}

	r.logger.WithField("result", Result(err)).Errorf("weather report failed: %v", err)
	if r.alerter == nil {
		return
	}

	// the run context may already be expired
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if alertErr := r.alerter.SendFailure(alertCtx, started, err); alertErr != nil {
		r.logger.Warnf("could not send failure alert: %v", alertErr)
	}
}

// Status returns a copy of the last run status
func (r *Reporter) Status() Status {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.status
}

// Result maps a run error to its metrics label
func Result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, scraper.ErrScrape):
		return "scrape_error"
	case errors.Is(err, ai.ErrSummary):
		return "summary_error"
	case errors.Is(err, telegram.ErrPublish):
		return "publish_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
