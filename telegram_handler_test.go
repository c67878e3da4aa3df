package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/session"
)

type sent struct {
	kind string // text, photo, document
	text string
	file tgbotapi.FileBytes
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.msgs = append(f.msgs, sent{kind: "text", text: m.Text})
	case tgbotapi.PhotoConfig:
		fb, _ := m.File.(tgbotapi.FileBytes)
		f.msgs = append(f.msgs, sent{kind: "photo", text: m.Caption, file: fb})
		return tgbotapi.Message{}, f.err
	case tgbotapi.DocumentConfig:
		fb, _ := m.File.(tgbotapi.FileBytes)
		f.msgs = append(f.msgs, sent{kind: "document", text: m.Caption, file: fb})
		return tgbotapi.Message{}, f.err
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.msgs...)
}

func (f *fakeSender) texts() string {
	var parts []string
	for _, m := range f.all() {
		parts = append(parts, m.text)
	}
	return strings.Join(parts, "\n---\n")
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

type fakeLinker struct {
	url string
}

func (f fakeLinker) GetFileDirectURL(fileID string) (string, error) {
	if f.url == "" {
		return "", fmt.Errorf("file %s not found", fileID)
	}
	return f.url + "/" + fileID, nil
}

// update decodes a Bot API update, commands get their bot_command entity.
func update(t *testing.T, chatID int64, text string) tgbotapi.Update {
	t.Helper()
	msg := map[string]interface{}{
		"message_id": 1,
		"chat":       map[string]interface{}{"id": chatID, "type": "private"},
		"from":       map[string]interface{}{"id": 7, "first_name": "test"},
		"text":       text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg["entities"] = []map[string]interface{}{{"type": "bot_command", "offset": 0, "length": len(cmd)}}
	}
	return decodeUpdate(t, msg)
}

func documentUpdate(t *testing.T, chatID int64, fileID, name, mimeType string) tgbotapi.Update {
	t.Helper()
	return decodeUpdate(t, map[string]interface{}{
		"message_id": 1,
		"chat":       map[string]interface{}{"id": chatID, "type": "private"},
		"from":       map[string]interface{}{"id": 7, "first_name": "test"},
		"document":   map[string]interface{}{"file_id": fileID, "file_name": name, "mime_type": mimeType},
	})
}

func decodeUpdate(t *testing.T, msg map[string]interface{}) tgbotapi.Update {
	b, err := json.Marshal(map[string]interface{}{"update_id": 1, "message": msg})
	require.NoError(t, err)
	var u tgbotapi.Update
	require.NoError(t, json.Unmarshal(b, &u))
	return u
}

func newTestBot(t *testing.T, fb *stubBackend, files map[string]string) (*telegramBot, *fakeSender) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	sender := &fakeSender{}
	return &telegramBot{
		api:       sender,
		files:     fakeLinker{url: srv.URL},
		store:     session.NewStore(fb, 0),
		publicURL: "https://dash.example/",
		client:    srv.Client(),
	}, sender
}

func TestBotDocumentUpload(t *testing.T) {
	fb := newStubBackend()
	bot, sender := newTestBot(t, fb, map[string]string{"f1": cityCSV})

	bot.handleUpdate(context.Background(), documentUpdate(t, 100, "f1", "city.csv", "text/csv"))

	require.Equal(t, 1, fb.uploadCount())
	assert.Equal(t, []byte(cityCSV), fb.uploaded.Data)
	out := sender.texts()
	assert.Contains(t, out, "File uploaded successfully")
	assert.Contains(t, out, "<pre>")
	assert.Contains(t, out, "Total Rows: 2, Total Columns: 2")
	assert.Contains(t, out, "Категориальные: city")
	assert.Contains(t, out, "Числовые: sales")
}

func TestBotDocumentRejected(t *testing.T) {
	fb := newStubBackend()
	bot, sender := newTestBot(t, fb, map[string]string{"img": "\x89PNG\r\n"})

	bot.handleUpdate(context.Background(), documentUpdate(t, 100, "img", "photo.png", "image/png"))

	assert.Equal(t, 0, fb.uploadCount())
	assert.Equal(t, session.NoticeInvalidCSV, sender.texts())
}

func TestBotDocumentDownloadFails(t *testing.T) {
	fb := newStubBackend()
	bot, sender := newTestBot(t, fb, nil)

	bot.handleUpdate(context.Background(), documentUpdate(t, 100, "missing", "city.csv", "text/csv"))

	assert.Equal(t, 0, fb.uploadCount())
	assert.Contains(t, sender.texts(), "https://dash.example/?id=")
}

func TestBotAggregate(t *testing.T) {
	fb := newStubBackend()
	bot, sender := newTestBot(t, fb, map[string]string{"f1": cityCSV})
	ctx := context.Background()
	bot.handleUpdate(ctx, documentUpdate(t, 100, "f1", "city.csv", "text/csv"))
	sender.reset()

	bot.handleUpdate(ctx, update(t, 100, "/aggregate city sales sum pie"))

	require.Len(t, fb.requests, 1)
	assert.Equal(t, "city", fb.requests[0].CategoricalColumn)
	assert.EqualValues(t, "sum", fb.requests[0].Function)

	msgs := sender.all()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "Aggregation Results: sum(sales) by city")
	assert.Contains(t, msgs[0].text, "20.25")
	assert.Contains(t, []string{"photo", "document"}, msgs[1].kind)
	assert.Equal(t, "sum_sales_by_city.png", msgs[1].file.Name)
	assert.Contains(t, msgs[1].text, "Круговая диаграмма")

	sender.reset()
	bot.handleUpdate(ctx, update(t, 100, "/chart line"))
	msgs = sender.all()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].text, "Линейный график")
	assert.Len(t, fb.requests, 1)

	sender.reset()
	bot.handleUpdate(ctx, update(t, 100, "/stats"))
	out := sender.texts()
	assert.Contains(t, out, "Статистика значений: sum(sales) by city")
	assert.Contains(t, out, "Количество: 2")

	sender.reset()
	bot.handleUpdate(ctx, update(t, 100, "/export"))
	msgs = sender.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "document", msgs[0].kind)
	assert.Equal(t, "sum_sales_by_city.xlsx", msgs[0].file.Name)
}

func TestBotAggregateWithoutChartData(t *testing.T) {
	fb := newStubBackend()
	fb.result = `{"group_by":"city","aggregate":{"sales":"sum"},"data":{"city":["A","B"],"sales":[0,null]}}`
	bot, sender := newTestBot(t, fb, map[string]string{"f1": cityCSV})
	ctx := context.Background()
	bot.handleUpdate(ctx, documentUpdate(t, 100, "f1", "city.csv", "text/csv"))
	sender.reset()

	bot.handleUpdate(ctx, update(t, 100, "/aggregate city sales sum pie"))
	msgs := sender.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, "text", msgs[1].kind)
	assert.Equal(t, "Нет данных для графика", msgs[1].text)

	sender.reset()
	bot.handleUpdate(ctx, update(t, 100, "/chart bar"))
	msgs = sender.all()
	require.Len(t, msgs, 2)
	assert.Contains(t, []string{"photo", "document"}, msgs[1].kind)
}

func TestBotCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"missing column", "/aggregate city", session.NoticeSelectColumns},
		{"bad function", "/aggregate city sales avg", "unknown aggregation function"},
		{"bad kind", "/aggregate city sales sum donut", "bar, pie или line"},
		{"no summary", "/summary", session.NoticeSelectFile},
		{"no result", "/export", "/aggregate"},
		{"no stats", "/stats", "/aggregate"},
		{"unknown", "/graph", "Неизвестная команда"},
		{"start", "/start", "/aggregate <категория>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newStubBackend()
			bot, sender := newTestBot(t, fb, nil)
			bot.handleUpdate(context.Background(), update(t, 5, tt.text))
			assert.Contains(t, sender.texts(), tt.want)
			assert.Empty(t, fb.requests)
		})
	}
}

func TestBotTextLink(t *testing.T) {
	bot, sender := newTestBot(t, newStubBackend(), nil)
	bot.handleUpdate(context.Background(), update(t, 100, "hello"))

	out := sender.texts()
	require.Contains(t, out, "https://dash.example/?id=")
	id := out[strings.Index(out, "?id=")+len("?id="):]

	linked, ok := bot.store.Get(id)
	require.True(t, ok)
	chat, ok := bot.store.Get("100")
	require.True(t, ok)
	assert.Same(t, chat, linked)

	sender.reset()
	bot.handleUpdate(context.Background(), update(t, 100, "hello again"))
	assert.Contains(t, sender.texts(), "?id="+id)
	assert.Equal(t, 2, bot.store.Len())
}

func TestSendGraphVisualization(t *testing.T) {
	spec := plot.Spec{Kind: plot.KindBar, Layout: plot.Layout{Title: "sum(v) by g"}}
	tests := []struct {
		name string
		size int
		want string
	}{
		{"small goes as photo", 1000, "photo"},
		{"large goes as document", maxSizePhoto + 1, "document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			sendGraphVisualization(sender, 1, make([]byte, tt.size), spec)
			msgs := sender.all()
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want, msgs[0].kind)
			assert.Equal(t, "sum_v_by_g.png", msgs[0].file.Name)
			assert.Equal(t, "Столбчатая диаграмма: sum(v) by g", msgs[0].text)
		})
	}

	sender := &fakeSender{err: assert.AnError}
	sendGraphVisualization(sender, 1, []byte{1}, spec)
	msgs := sender.all()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].text, "Не удалось отправить визуализацию bar")
}
