package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okMessage = `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":-100,"type":"channel"}}}`

type call struct {
	method  string
	chatID  string
	caption string
	text    string
	photo   []byte
}

type fakeAPI struct {
	mu     sync.Mutex
	calls  []call
	status int
	body   string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := call{method: r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]}
	if err := r.ParseMultipartForm(10 << 20); err == nil {
		c.chatID = r.FormValue("chat_id")
		c.caption = r.FormValue("caption")
		c.text = r.FormValue("text")
		if file, _, err := r.FormFile("photo"); err == nil {
			c.photo, _ = io.ReadAll(file)
		}
	}
	f.calls = append(f.calls, c)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = fmt.Fprint(w, f.body)
		return
	}
	_, _ = fmt.Fprint(w, okMessage)
}

func newTestPublisher(t *testing.T, api *fakeAPI) (*Publisher, *prometheus.Monitor, *bytes.Buffer) {
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	monitor := prometheus.New()
	p, err := New(Options{Token: "123:abc", ChatID: "-100", ServerURL: server.URL}, monitor, logger)
	require.NoError(t, err)

	return p, monitor, &buf
}

func TestPublish_Caption(t *testing.T) {
	api := &fakeAPI{}
	p, _, _ := newTestPublisher(t, api)

	err := p.Publish(context.Background(), "В Токио — до +34°C ☀️", []byte("png-bytes"))
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "sendPhoto", api.calls[0].method)
	assert.Equal(t, "-100", api.calls[0].chatID)
	assert.Equal(t, "В Токио — до +34°C ☀️", api.calls[0].caption)
	assert.Equal(t, []byte("png-bytes"), api.calls[0].photo)
}

func TestPublish_LongText(t *testing.T) {
	api := &fakeAPI{}
	p, _, _ := newTestPublisher(t, api)

	text := strings.Repeat("Жарко ", 1000) // 6000 runes
	err := p.Publish(context.Background(), text, []byte("png"))
	require.NoError(t, err)

	require.Len(t, api.calls, 3)
	assert.Equal(t, "sendPhoto", api.calls[0].method)
	assert.Empty(t, api.calls[0].caption)
	assert.Equal(t, "sendMessage", api.calls[1].method)
	assert.Equal(t, "sendMessage", api.calls[2].method)
	assert.Equal(t, strings.TrimSpace(text), api.calls[1].text+" "+api.calls[2].text)
}

func TestPublish_EmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		image []byte
	}{
		{"empty text", " \n", []byte("png")},
		{"empty image", "Прогноз", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			p, _, _ := newTestPublisher(t, api)

			err := p.Publish(context.Background(), tt.text, tt.image)
			assert.ErrorIs(t, err, ErrPublish)
			assert.Empty(t, api.calls)
		})
	}
}

func TestPublish_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"ok":false,"error_code":401,"description":"Unauthorized"}`},
		{"forbidden", http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked"}`},
		{"rate limited", http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":30}}`},
		{"bad request", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{status: tt.status, body: tt.body}
			p, _, _ := newTestPublisher(t, api)

			err := p.Publish(context.Background(), "Прогноз", []byte("png"))
			assert.ErrorIs(t, err, ErrPublish)
			assert.Len(t, api.calls, 1) // no retry
		})
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		expected []string
	}{
		{"fits", "один два", 10, []string{"один два"}},
		{"split at space", "один два три", 8, []string{"один два", "три"}},
		{"hard cut", "абвгдежз", 3, []string{"абв", "где", "жз"}},
		{"empty", "   ", 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.limit)
			assert.Equal(t, tt.expected, chunks)
			for _, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tt.limit)
			}
		})
	}
}
