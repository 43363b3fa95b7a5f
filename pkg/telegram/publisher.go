package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// ErrPublish aborts the run, there is no retry within the same run
var ErrPublish = errors.New("publish failed")

const (
	CaptionLimit = 1024
	MessageLimit = 4096

	photoName = "weather_map.png"
)

type Options struct {
	Token     string
	ChatID    string
	ServerURL string // empty means the public Bot API
}

// Publisher posts the map and the summary to one chat
type Publisher struct {
	bot    *bot.Bot
	chatID string

	monitor *prometheus.Monitor
	logger  *logrus.Logger
}

func New(options Options, m *prometheus.Monitor, l *logrus.Logger) (*Publisher, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(time.Minute, &http.Client{Timeout: time.Minute}),
	}
	if options.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(options.ServerURL))
	}

	b, err := bot.New(options.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}

	return &Publisher{
		bot:    b,
		chatID: options.ChatID,

		monitor: m,
		logger:  l,
	}, nil
}

// Publish sends the image with the text as caption when it fits,
// otherwise the image first and the text as separate messages after it
func (p *Publisher) Publish(ctx context.Context, text string, image []byte) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty text", ErrPublish)
	}
	if len(image) == 0 {
		return fmt.Errorf("%w: empty image", ErrPublish)
	}

	if utf8.RuneCountInString(text) <= CaptionLimit {
		if err := p.sendPhoto(ctx, image, text); err != nil {
			return err
		}

		p.logger.Info("weather report sent as photo with caption")
		return nil
	}

	if err := p.sendPhoto(ctx, image, ""); err != nil {
		return err
	}

	chunks := SplitText(text, MessageLimit)
	for i, chunk := range chunks {
		if err := p.sendMessage(ctx, chunk); err != nil {
			p.logger.WithFields(logrus.Fields{
				"sent":  i,
				"total": len(chunks),
			}).Error("weather report delivered partially")
			return err
		}
	}

	p.logger.Infof("weather report sent as photo and %d messages", len(chunks))
	return nil
}

func (p *Publisher) sendPhoto(ctx context.Context, image []byte, caption string) error {
	_, err := p.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  p.chatID,
		Photo:   &models.InputFileUpload{Filename: photoName, Data: bytes.NewReader(image)},
		Caption: caption,
	})
	if err != nil {
		return classify("sendPhoto", err)
	}
	p.monitor.MessagesSent.WithLabelValues("sendPhoto").Inc()

	return nil
}

func (p *Publisher) sendMessage(ctx context.Context, text string) error {
	_, err := p.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: p.chatID,
		Text:   text,
	})
	if err != nil {
		return classify("sendMessage", err)
	}
	p.monitor.MessagesSent.WithLabelValues("sendMessage").Inc()

	return nil
}

func classify(method string, err error) error {
	var tooMany *bot.TooManyRequestsError
	switch {
	case errors.Is(err, bot.ErrorUnauthorized), errors.Is(err, bot.ErrorForbidden):
		return fmt.Errorf("%w: %s not authorized: %v", ErrPublish, method, err)
	case errors.As(err, &tooMany):
		return fmt.Errorf("%w: %s rate limited, retry after %ds", ErrPublish, method, tooMany.RetryAfter)
	default:
		return fmt.Errorf("%w: %s: %v", ErrPublish, method, err)
	}
}

// SplitText cuts text into chunks of at most limit runes, preferring
// whitespace boundaries. Words longer than limit are cut hard.
func SplitText(text string, limit int) []string {
	var chunks []string
	runes := []rune(strings.TrimSpace(text))

	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}
