package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrTranslation is logged and never aborts a run, untranslated names pass through
var ErrTranslation = errors.New("translation failed")

var reCyrillic = regexp.MustCompile(`[А-ЯЁа-яё]`)

// MissHandler translates names the static table does not know.
// The returned map may be partial.
type MissHandler interface {
	TranslateNames(ctx context.Context, names []string) (map[string]string, error)
}

// Translator maps Japanese city names to Russian
type Translator struct {
	static     map[string]string
	miss       MissHandler
	maxRetries int

	monitor *prometheus.Monitor
	logger  *logrus.Logger
}

func New(miss MissHandler, monitor *prometheus.Monitor, logger *logrus.Logger) *Translator {
	return &Translator{
		static:     Cities,
		miss:       miss,
		maxRetries: 2,

		monitor: monitor,
		logger:  logger,
	}
}

// NewRun starts a translation scope with its own cache.
// The cache lives as long as the returned Run, one scheduled run.
func (t *Translator) NewRun() *Run {
	return &Run{
		translator: t,
		cache:      map[string]string{},
	}
}

// IsCyrillic reports whether s contains at least one Russian letter
func IsCyrillic(s string) bool {
	return reCyrillic.MatchString(s)
}

type Run struct {
	translator *Translator
	cache      map[string]string
}

// Translate returns target names parallel to names
func (r *Run) Translate(ctx context.Context, names []string) []string {
	var missing []string
	seen := map[string]bool{}
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if _, ok := r.lookup(name); !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		if err := r.resolve(ctx, missing); err != nil {
			r.translator.logger.WithField("names", missing).Warnf("could not translate city names: %v", err)
		}
	}

	out := make([]string, len(names))
	for i, name := range names {
		if translated, ok := r.lookup(name); ok {
			out[i] = translated
		} else {
			out[i] = name
		}
	}

	return out
}

// Mapping is Translate in the form the browser needs for DOM replacement
func (r *Run) Mapping(ctx context.Context, names []string) map[string]string {
	translated := r.Translate(ctx, names)
	mapping := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" {
			mapping[name] = translated[i]
		}
	}

	return mapping
}

func (r *Run) lookup(name string) (string, bool) {
	if v, ok := r.translator.static[name]; ok {
		return v, true
	}

	v, ok := r.cache[name]
	return v, ok
}

// resolve asks the miss handler for all unknown names at once.
// Names answered without Cyrillic are asked again, up to maxRetries times.
func (r *Run) resolve(ctx context.Context, missing []string) error {
	if r.translator.miss == nil {
		return fmt.Errorf("%w: no translation service configured", ErrTranslation)
	}

	r.translator.monitor.TranslationMisses.WithLabelValues().Add(float64(len(missing)))

	for attempt := 0; attempt <= r.translator.maxRetries && len(missing) > 0; attempt++ {
		r.translator.logger.Infof("translating %d city names, attempt %d", len(missing), attempt+1)

		result, err := r.translator.miss.TranslateNames(ctx, missing)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTranslation, err)
		}

		var bad []string
		for _, name := range missing {
			translated := strings.TrimSpace(result[name])
			if IsCyrillic(translated) {
				r.cache[name] = translated
			} else {
				bad = append(bad, name)
			}
		}

		r.translator.logger.Debugf("translated good=%d, bad=%d", len(missing)-len(bad), len(bad))
		missing = bad
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: no Cyrillic translation for %s", ErrTranslation, strings.Join(missing, ", "))
	}

	return nil
}
