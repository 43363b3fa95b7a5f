package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/translate"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/weather"
	"github.com/sirupsen/logrus"
)

// ErrScrape aborts the run, the page could not be read or captured
var ErrScrape = errors.New("scrape failed")

// NameTranslator supplies the target name for every source name
type NameTranslator interface {
	Mapping(ctx context.Context, names []string) map[string]string
}

type Options struct {
	URL           string
	MapSelector   string
	RenderTimeout time.Duration // navigation and first paint of the map
	SettleTimeout time.Duration // tiles filled in by client-side rendering
	PollInterval  time.Duration
}

type Scraper struct {
	launcher Launcher
	options  Options
	logger   *logrus.Logger
}

func New(launcher Launcher, options Options, logger *logrus.Logger) *Scraper {
	if options.PollInterval <= 0 {
		options.PollInterval = 500 * time.Millisecond
	}

	return &Scraper{
		launcher: launcher,
		options:  options,
		logger:   logger,
	}
}

// Scrape opens the weather page, reads all city tiles, puts translated names
// on the map and captures it. The browser is closed on every return path.
func (s *Scraper) Scrape(ctx context.Context, names NameTranslator) (weather.Report, error) {
	report := weather.Report{}

	s.logger.Info("opening browser")
	page, err := s.launcher.Launch(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrScrape, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Debugf("could not close browser cleanly: %v", err)
		}
	}()

	if err := s.render(ctx, page); err != nil {
		return report, err
	}

	tiles, err := s.waitForTiles(ctx, page)
	if err != nil {
		return report, err
	}
	s.logger.Infof("found %d weather tiles", len(tiles))

	mapping := names.Mapping(ctx, Names(tiles))
	s.logger.WithField("mapping", mapping).Debug("city names translated")

	s.replaceNames(ctx, page, mapping)

	if err := page.AddStyle(ctx, labelStyle); err != nil {
		s.logger.Warnf("could not style map labels: %v", err)
	}

	shot, err := page.Screenshot(ctx, s.options.MapSelector)
	if err != nil {
		return report, fmt.Errorf("%w: could not capture map: %v", ErrScrape, err)
	}
	if len(shot) == 0 {
		return report, fmt.Errorf("%w: map screenshot is empty", ErrScrape)
	}
	s.logger.Info("map screenshot captured")

	report.Entries = BuildEntries(tiles, mapping)
	report.Map = shot

	return report, nil
}

func (s *Scraper) render(ctx context.Context, page Page) error {
	ctx, cancel := context.WithTimeout(ctx, s.options.RenderTimeout)
	defer cancel()

	if err := page.Navigate(ctx, s.options.URL); err != nil {
		return fmt.Errorf("%w: could not open %s: %v", ErrScrape, s.options.URL, err)
	}

	if err := page.WaitVisible(ctx, s.options.MapSelector); err != nil {
		return fmt.Errorf("%w: map %s did not appear: %v", ErrScrape, s.options.MapSelector, err)
	}

	return nil
}

// waitForTiles polls the rendered document until at least one tile carries
// a name and the tile count did not change since the previous poll
func (s *Scraper) waitForTiles(ctx context.Context, page Page) ([]Tile, error) {
	var (
		tiles   []Tile
		last    = -1
		lastErr error
	)

	err := PollUntil(ctx, s.options.PollInterval, s.options.SettleTimeout, func(ctx context.Context) (bool, error) {
		document, err := page.HTML(ctx)
		if err != nil {
			lastErr = err
			return false, nil
		}

		found, err := ExtractTiles(document, s.options.MapSelector)
		if err != nil {
			lastErr = err
			return false, nil
		}
		lastErr = nil

		named := len(Names(found))
		stable := len(found) == last
		last = len(found)
		tiles = found

		return named > 0 && stable, nil
	})

	switch {
	case err == nil:
		return tiles, nil
	case errors.Is(err, ErrPollTimeout) && lastErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrScrape, lastErr)
	case errors.Is(err, ErrPollTimeout) && len(Names(tiles)) > 0:
		// named tiles kept changing in count, take the latest reading
		s.logger.Warnf("tile count did not settle, using %d tiles", len(tiles))
		return tiles, nil
	case errors.Is(err, ErrPollTimeout):
		return nil, fmt.Errorf("%w: no weather tiles found", ErrScrape)
	default:
		return nil, fmt.Errorf("%w: %v", ErrScrape, err)
	}
}

// replaceNames puts translated names on the map, a page that keeps the
// untranslated labels is only logged
func (s *Scraper) replaceNames(ctx context.Context, page Page, mapping map[string]string) {
	labels, err := page.ReplaceNames(ctx, mapping, s.options.MapSelector)
	if err != nil {
		s.logger.Warnf("could not replace names on the map: %v", err)
		return
	}

	if anyCyrillic(labels) {
		s.logger.Info("map labels translated")
		return
	}

	err = PollUntil(ctx, 300*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		labels, err := page.Names(ctx)
		if err != nil {
			return false, err
		}

		return anyCyrillic(labels), nil
	})
	if err != nil {
		s.logger.Warnf("map labels are not translated: %v", err)
		return
	}

	s.logger.Info("map labels translated")
}

func anyCyrillic(names []string) bool {
	for _, name := range names {
		if translate.IsCyrillic(name) {
			return true
		}
	}

	return false
}
