package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var linkURLEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

// EscapeMarkdown escapes every MarkdownV2 control character in s.
func EscapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// MarkdownLink renders a MarkdownV2 inline link.
func MarkdownLink(label, url string) string {
	return "[" + EscapeMarkdown(label) + "](" + linkURLEscaper.Replace(url) + ")"
}
