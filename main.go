package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/ai"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/config"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/hook"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/reporter"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/scheduler"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/scraper"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/telegram"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/translate"
)

func main() {
	// for development purposes
	// we don't care about errors here
	_ = godotenv.Load(".env")

	logger := createLogger()

	conf, err := config.Load(config.Path())
	if err != nil {
		logger.Fatalf("could not load configuration: %v", err)
	}
	configureLogger(logger, conf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := prometheus.New()

	provider, err := ai.NewProvider(conf, mon, logger)
	if err != nil {
		logger.Fatalf("could not create text generation provider: %v", err)
	}
	summarizer := ai.NewSummarizer(provider, ai.Options{
		Rephrase:    conf.RephraseEnabled(),
		FocusCities: conf.Summary.FocusCities,
		Location:    conf.ReportLocation(),
	}, logger)

	translator := translate.New(summarizer, mon, logger)

	pageScraper := scraper.New(
		scraper.NewChromeLauncher(scraper.ChromeOptions{
			ExecPath: conf.Browser.ExecPath,
			Headless: *conf.Browser.Headless,
			Width:    conf.Browser.Width,
			Height:   conf.Browser.Height,
		}, logger),
		scraper.Options{
			URL:           conf.Nhk.URL,
			MapSelector:   conf.Nhk.MapSelector,
			RenderTimeout: conf.RenderTimeout(),
			SettleTimeout: conf.SettleTimeout(),
		},
		logger,
	)

	publisher, err := telegram.New(telegram.Options{
		Token:  conf.Telegram.BotToken,
		ChatID: conf.Telegram.ChatID,
	}, mon, logger)
	if err != nil {
		logger.Fatalf("could not create telegram publisher: %v", err)
	}

	weatherReporter := reporter.New(
		pageScraper,
		translator,
		summarizer,
		publisher,
		hook.New(conf.Alert.WebhookURL, conf.ReportLocation()),
		conf.ReportLocation(),
		mon,
		logger,
	)

	sched := scheduler.New(weatherReporter.Run, scheduler.Options{
		Hour:       conf.ScheduleHour(),
		Minute:     conf.ScheduleMinute(),
		Location:   conf.ScheduleLocation(),
		Poll:       conf.PollInterval(),
		RunTimeout: conf.RunTimeout(),
	}, logger)

	if conf.RunOnce {
		os.Exit(runOnce(ctx, cancel, sched, logger))
	}

	loopDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(loopDone)
	}()

	StartServer(NewRouter(&HandlerRepository{
		reporter:  weatherReporter,
		scheduler: sched,
		config:    conf,
		monitor:   mon,
		logger:    logger,
		ctx:       ctx,
	}), conf.Server.Port, cancel, logger)

	// let a cancelled run close the browser and log its result
	<-loopDone
	if !sched.Wait(30 * time.Second) {
		logger.Warn("run did not finish in time, exiting anyway")
	}
}

// runOnce executes a single pipeline pass, the exit code reports the result
func runOnce(ctx context.Context, cancel context.CancelFunc, sched *scheduler.Scheduler, logger *logrus.Logger) int {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-done
		cancel()
	}()

	if err := sched.RunNow(ctx); err != nil {
		logger.Errorf("failed to send weather report: %v", err)
		return 1
	}

	logger.Info("weather report successfully sent")
	return 0
}

func createLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	return logger
}

// configureLogger applies level and the optional rotating log file
func configureLogger(logger *logrus.Logger, conf *config.Config) {
	level, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", conf.Log.Level)
		level = logrus.InfoLevel
	}
	if conf.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if conf.Log.File == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(conf.Log.File), 0o755); err != nil {
		logger.Errorf("could not create log directory: %v", err)
		return
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   conf.Log.File,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}))
}
