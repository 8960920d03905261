package format

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string
// This is required because Telegram uses UTF-16 code units for entity offsets/lengths
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // Non-BMP characters (surrogate pairs)
			} else {
				length += 1
			}
		}
	}
	return length
}

// Builder accumulates text and entities without interpreting markup, so user
// content such as task titles is sent verbatim.
type Builder struct {
	sb       strings.Builder
	entities []tgbotapi.MessageEntity
}

func (b *Builder) Plain(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

func (b *Builder) Bold(s string) *Builder {
	return b.styled("bold", s)
}

func (b *Builder) styled(kind, s string) *Builder {
	if s == "" {
		return b
	}
	b.entities = append(b.entities, tgbotapi.MessageEntity{
		Type:   kind,
		Offset: UTF16Len(b.sb.String()),
		Length: UTF16Len(s),
	})
	b.sb.WriteString(s)
	return b
}

func (b *Builder) Result() ParseResult {
	return ParseResult{Text: b.sb.String(), Entities: b.entities}
}

// Notification renders a reminder: a bell, the bold title, then the body.
func Notification(title, body string) ParseResult {
	b := &Builder{}
	b.Plain("🔔 ").Bold(title)
	if body != "" {
		b.Plain("\n").Plain(body)
	}
	return b.Result()
}
