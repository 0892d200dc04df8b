package postbot

import (
	"fmt"
	"strings"
)

// Reply keyboard captions, matched byte-for-byte by the router.
const (
	MenuCompose  = "📤 Пост в ВК"
	MenuHelp     = "ℹ️ Помощь"
	MenuGenerate = "✨ Сгенерировать пост"
)

// Action tokens carried by the confirm/cancel buttons.
const (
	ActionConfirm = "confirm_post"
	ActionCancel  = "cancel_post"
)

const (
	btnConfirm = "✅ Подтвердить"
	btnCancel  = "❌ Отмена"

	msgStart         = "Привет! Я бот-помощник Etronics 🚀\n\nВыбери действие ниже:"
	msgPostUsage     = "Укажи текст поста после /post"
	msgAskText       = "Напиши текст поста, и я предложу его опубликовать 👇"
	msgComposeEmpty  = "Текст поста пустой. Нажми «" + MenuCompose + "» и пришли текст ещё раз."
	msgNotFound      = "❌ Ошибка: пост не найден."
	msgPublished     = "✅ Пост опубликован в ВКонтакте!"
	msgCancelled     = "🚫 Публикация отменена."
	msgGenDisabled   = "Генерация постов отключена."
	msgRateLimited   = "⏳ Слишком часто, подожди секунду."
	msgPublishFailed = "❌ Ошибка при публикации: %s"
	msgGenFailed     = "❌ Не удалось сгенерировать пост: %s"
)

func helpText(generation bool) string {
	var b strings.Builder
	b.WriteString("/start — запуск\n/help — помощь\n/post <текст> — пост в ВК\n")
	if generation {
		b.WriteString("/generate [тема] — сгенерировать пост\n")
	}
	b.WriteString("\nИли воспользуйся кнопками ⬇️")
	return b.String()
}

func promptText(text string) string {
	return fmt.Sprintf("Вот текст поста:\n\n%s\n\nОпубликовать в ВК?", text)
}
