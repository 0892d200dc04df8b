package postbot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/telegram/keyboard"
)

func mainMenu(generation bool) *tele.ReplyMarkup {
	rows := [][]string{{MenuCompose, MenuHelp}}
	if generation {
		rows = append(rows, []string{MenuGenerate})
	}
	return keyboard.ReplyButtons(rows...)
}

func confirmKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineRows([]keyboard.InlineBtn{
		{Text: btnConfirm, Unique: ActionConfirm},
		{Text: btnCancel, Unique: ActionCancel},
	})
}
