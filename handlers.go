package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/config"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/reporter"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/scheduler"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type HandlerRepository struct {
	reporter  *reporter.Reporter
	scheduler *scheduler.Scheduler
	config    *config.Config
	monitor   *prometheus.Monitor
	logger    *logrus.Logger
	ctx       context.Context // process lifetime, manual runs outlive the request
}

// metricsHandler returns HTTP handler for metrics endpoint
func (hr *HandlerRepository) metricsHandler() http.Handler {
	return promhttp.HandlerFor(
		hr.monitor.Registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          hr.monitor.Registry,
		},
	)
}

func (hr *HandlerRepository) statusHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		now := time.Now()
		next := hr.scheduler.NextRun(now)
		status := hr.reporter.Status()
		loc := hr.config.ScheduleLocation()

		type output struct {
			Running     bool   `json:"running"`
			LastRun     string `json:"last_run"`
			LastSuccess string `json:"last_success"`
			LastError   string `json:"last_error,omitempty"`
			Entries     int    `json:"entries"`
			Summary     string `json:"summary,omitempty"`
			NextRun     string `json:"next_run"`
			NextRunIn   string `json:"next_run_in"`
		}

		res, err := json.Marshal(output{
			Running:     hr.scheduler.Busy(),
			LastRun:     utils.FormatDateTime(status.LastRun, loc),
			LastSuccess: utils.FormatDateTime(status.LastSuccess, loc),
			LastError:   status.LastError,
			Entries:     status.Entries,
			Summary:     status.Summary,
			NextRun:     utils.FormatDateTime(next, loc),
			NextRunIn:   nextRunIn(hr.scheduler.NextRunIn(now)),
		})
		if err != nil {
			http.Error(w, "Could not marshal data to JSON", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, err = w.Write(res)
		if err != nil {
			hr.logger.Errorf("Could not write response: %v", err)
		}
	}
}

func nextRunIn(d time.Duration) string {
	if d <= 0 {
		return "due now"
	}

	return utils.FormatDuration(d)
}

// runHandler starts a pipeline run in the background
func (hr *HandlerRepository) runHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		if hr.config.Server.AuthToken == "" {
			http.Error(w, "Manual runs are disabled", http.StatusForbidden)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth != hr.config.Server.AuthToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if hr.scheduler.Busy() {
			http.Error(w, "Run already in progress", http.StatusConflict)
			return
		}

		go func() {
			if err := hr.scheduler.RunNow(hr.ctx); err != nil && !errors.Is(err, scheduler.ErrBusy) {
				hr.logger.Warnf("manual run failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, err := w.Write(utils.GetOkJSON())
		if err != nil {
			hr.logger.Errorf("Could not write response: %v", err)
		}
	}
}
