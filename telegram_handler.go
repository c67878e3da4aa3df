package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/pivolan/eda_dashboard/aggregation"
	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/report"
	"github.com/pivolan/eda_dashboard/session"
	"github.com/pivolan/eda_dashboard/upload"
)

// Telegram режет сообщения длиннее 4096 символов
const maxMessageLen = 4000

const welcomeText = `Привет! 👋

Я помогу исследовать ваш CSV файл: покажу колонки, пропуски и построю агрегации.

Как со мной работать:
1. Отправьте CSV файл прямо в чат (можно архивом gzip, lz4, zip)
2. /summary - сводка по колонкам
3. /columns - какие колонки можно группировать и агрегировать
4. /aggregate <категория> <число> [функция] [bar|pie|line] - таблица и график
5. /chart <bar|pie|line> - перерисовать последний результат
6. /stats - статистика значений последнего результата
7. /export - последний результат в xlsx
8. Любое другое сообщение - ссылка на веб-дашборд с той же сессией

Функции: sum, mean, min, max, count, n_unique, median, std (по умолчанию mean)`

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type fileLinker interface {
	GetFileDirectURL(fileID string) (string, error)
}

type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error)
	StopReceivingUpdates()
}

type telegramBot struct {
	api       botSender
	files     fileLinker
	updates   updateSource
	store     *session.Store
	publicURL string
	client    *http.Client
}

func (b *telegramBot) run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.updates.GetUpdatesChan(u)
	if err != nil {
		log.Printf("tg updates: %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *telegramBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil {
		return
	}
	sess := b.store.GetOrCreate(strconv.FormatInt(message.Chat.ID, 10))

	switch {
	case message.Document != nil:
		b.handleDocument(ctx, sess, message)
	case message.IsCommand():
		b.handleCommand(ctx, sess, message)
	case message.Text != "":
		b.sendLink(sess, message.Chat.ID)
	}
}

func (b *telegramBot) handleCommand(ctx context.Context, sess *session.Session, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start", "help":
		b.reply(chatID, welcomeText)
	case "summary":
		v := sess.Current()
		if v.Summary == nil {
			b.reply(chatID, noSummaryText(v))
			return
		}
		b.sendPre(chatID, report.SummaryTable(v.Summary, report.FormatText), "summary.txt")
	case "columns":
		b.sendColumns(sess, chatID)
	case "aggregate":
		b.handleAggregate(ctx, sess, chatID, args)
	case "chart":
		kind := plot.KindBar
		if len(args) > 0 {
			k, err := plot.ParseKind(args[0])
			if err != nil {
				b.reply(chatID, "Неизвестный тип графика. Используйте: bar, pie или line")
				return
			}
			kind = k
		}
		sess.SetChartKind(kind)
		b.sendResult(sess, chatID)
	case "stats":
		b.sendStats(sess, chatID)
	case "export":
		b.sendXLSX(sess, chatID)
	default:
		b.reply(chatID, "Неизвестная команда. Используйте /start чтобы увидеть список команд")
	}
}

func (b *telegramBot) handleDocument(ctx context.Context, sess *session.Session, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	doc := message.Document

	data, err := b.download(ctx, doc.FileID)
	if err != nil {
		log.Printf("Error downloading file %s: %v", doc.FileName, err)
		b.reply(chatID, "Не удалось скачать файл, если он слишком большой загрузите его через веб: "+b.link(sess))
		return
	}

	f := upload.File{Name: doc.FileName, ContentType: doc.MimeType, Data: data}
	if f.ContentType == "" {
		f.ContentType = upload.ContentTypeFor(doc.FileName)
	}
	if err := handleFile(ctx, sess, f); err != nil {
		b.reply(chatID, userMessage(sess, err))
		return
	}

	v := sess.Current()
	b.reply(chatID, v.UploadMessage)
	if v.Summary == nil {
		b.reply(chatID, noSummaryText(v))
		return
	}
	b.sendPre(chatID, report.SummaryTable(v.Summary, report.FormatText), "summary.txt")
	b.sendColumns(sess, chatID)
}

func (b *telegramBot) handleAggregate(ctx context.Context, sess *session.Session, chatID int64, args []string) {
	if len(args) < 2 {
		b.reply(chatID, session.NoticeSelectColumns+"\nПример: /aggregate city sales mean bar")
		return
	}
	var fn, kindArg string
	if len(args) > 2 {
		fn = args[2]
	}
	if len(args) > 3 {
		kindArg = args[3]
	}
	req, err := parseAggregation(args[0], args[1], fn)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("%v. Функции: %s", err, functionList()))
		return
	}
	kind, err := parseChartKind(kindArg)
	if err != nil {
		b.reply(chatID, "Неизвестный тип графика. Используйте: bar, pie или line")
		return
	}

	if err := sess.Aggregate(ctx, req); err != nil {
		if errors.Is(err, session.ErrStaleResponse) {
			return
		}
		b.reply(chatID, userMessage(sess, err))
		return
	}
	sess.SetChartKind(kind)
	b.sendResult(sess, chatID)
}

// sendResult sends the current result as a table and a chart
func (b *telegramBot) sendResult(sess *session.Session, chatID int64) {
	v := sess.Current()
	if v.Result == nil {
		b.reply(chatID, "Пока нет результата. Используйте /aggregate")
		return
	}
	if v.Error != "" {
		b.reply(chatID, v.Error)
		return
	}
	table, err := report.AggregationTable(*v.Result, v.Request.Function, report.FormatText)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.sendPre(chatID, table, "aggregation.txt")

	if v.Chart == nil || v.Chart.Empty() {
		b.reply(chatID, "Нет данных для графика")
		return
	}
	graph, err := plot.RenderPNG(*v.Chart)
	if errors.Is(err, plot.ErrEmptyChart) {
		b.reply(chatID, "Нет данных для графика")
		return
	}
	if err != nil {
		log.Printf("render %s chart: %v", v.Chart.Kind, err)
		b.reply(chatID, "Не удалось построить график")
		return
	}
	sendGraphVisualization(b.api, chatID, graph, *v.Chart)
}

func (b *telegramBot) sendColumns(sess *session.Session, chatID int64) {
	c := sess.Candidates()
	if len(c.Categorical) == 0 && len(c.Numeric) == 0 {
		b.reply(chatID, session.NoticeSelectFile)
		return
	}
	text := fmt.Sprintf("Категориальные: %s\nЧисловые: %s\nФункции: %s",
		joinOrDash(c.Categorical), joinOrDash(c.Numeric), functionList())
	b.reply(chatID, text)
}

// sendStats описывает распределение агрегированных значений
func (b *telegramBot) sendStats(sess *session.Session, chatID int64) {
	v := sess.Peek()
	switch {
	case v.Result == nil:
		b.reply(chatID, "Пока нет результата. Используйте /aggregate")
		return
	case v.Error != "":
		b.reply(chatID, v.Error)
		return
	}
	_, values := aggregation.Columns(*v.Result, *v.Keys)
	s, err := report.ValueSummary(values)
	if err != nil {
		b.reply(chatID, "❌ Числовые значения не найдены в результате")
		return
	}
	b.reply(chatID, report.StatsText(v.Title, s))
}

func (b *telegramBot) sendXLSX(sess *session.Session, chatID int64) {
	v := sess.Peek()
	if v.Result == nil {
		b.reply(chatID, "Пока нет результата. Используйте /aggregate")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, *v.Result); err != nil {
		b.reply(chatID, err.Error())
		return
	}
	name := "aggregation.xlsx"
	if v.Chart != nil {
		name = plot.FileName(*v.Chart, "xlsx")
	}
	doc := tgbotapi.NewDocumentUpload(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = v.Title
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("send %s: %v", name, err)
	}
}

func (b *telegramBot) sendLink(sess *session.Session, chatID int64) {
	b.reply(chatID, "Перейдите по ссылке чтобы загрузить файл: "+b.link(sess))
}

func (b *telegramBot) link(sess *session.Session) string {
	return strings.TrimRight(b.publicURL, "/") + "/?id=" + b.store.Share(sess)
}

// sendPre sends text as preformatted html, too long text goes as a file
func (b *telegramBot) sendPre(chatID int64, text, fileName string) {
	if len(text) > maxMessageLen {
		doc := tgbotapi.NewDocumentUpload(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: []byte(text)})
		doc.Caption = "file"
		if _, err := b.api.Send(doc); err != nil {
			log.Printf("send %s: %v", fileName, err)
		}
		return
	}
	msg := tgbotapi.NewMessage(chatID, "<pre>\n"+html.EscapeString(text)+"\n</pre>")
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}

func (b *telegramBot) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}

func (b *telegramBot) download(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.files.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func noSummaryText(v session.View) string {
	if v.Notice != "" {
		return v.Notice
	}
	if v.UploadState == session.UploadSucceeded {
		return "Сводка ещё не получена, попробуйте /summary позже"
	}
	return session.NoticeSelectFile
}

func functionList() string {
	names := make([]string, len(models.AggregationFunctions))
	for i, f := range models.AggregationFunctions {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
