package main

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/pivolan/eda_dashboard/plot"
)

// Telegram пережимает большие фото, такие графики уходят документом
const maxSizePhoto = 150000

// sendGraphVisualization отправляет график в чат с подписью.
// Параметры:
//   - graph: PNG, отрисованный из spec
//   - spec: описание графика, из него берутся имя файла и подпись
func sendGraphVisualization(api botSender, chatID int64, graph []byte, spec plot.Spec) {
	pngFile := tgbotapi.FileBytes{
		Name:  plot.FileName(spec, "png"),
		Bytes: graph,
	}

	var msg tgbotapi.Chattable
	if len(graph) < maxSizePhoto {
		photo := tgbotapi.NewPhotoUpload(chatID, pngFile)
		photo.Caption = generateVizualDescription(spec)
		msg = photo
	} else {
		doc := tgbotapi.NewDocumentUpload(chatID, pngFile)
		doc.Caption = generateVizualDescription(spec)
		msg = doc
	}

	if _, err := api.Send(msg); err != nil {
		log.Printf("Ошибка отправки визуализации %s (%s): %v", spec.Kind, spec.Layout.Title, err)
		errMsg := tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Не удалось отправить визуализацию %s. Ошибка: %v", spec.Kind, err))
		if _, err := api.Send(errMsg); err != nil {
			log.Printf("Ошибка отправки сообщения в чат %d: %v", chatID, err)
		}
	}
}

func generateVizualDescription(spec plot.Spec) string {
	switch spec.Kind {
	case plot.KindPie:
		return fmt.Sprintf("Круговая диаграмма: %s\n"+
			"Показывает долю каждой категории в общей сумме.", spec.Layout.Title)
	case plot.KindLine:
		return fmt.Sprintf("Линейный график: %s", spec.Layout.Title)
	default:
		return fmt.Sprintf("Столбчатая диаграмма: %s", spec.Layout.Title)
	}
}
