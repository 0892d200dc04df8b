package generate

import (
	"fmt"
	"strings"
)

// PostPrompt asks for a short post about topic, grounded on the given source texts.
func PostPrompt(topic string, sources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Напиши короткий пост для сообщества ВКонтакте на тему «%s».", topic)
	if len(sources) > 0 {
		b.WriteString("\n\nОпирайся на эти материалы:\n")
		for i, s := range sources {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	b.WriteString("\nБез хэштегов в начале, не длиннее 800 символов.")
	return b.String()
}

// ImagePrompt describes an illustration for a post about topic.
func ImagePrompt(topic string) string {
	return fmt.Sprintf("Яркая иллюстрация для поста о теме «%s», без текста на изображении", topic)
}
