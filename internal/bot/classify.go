package bot

import (
	"mediagate/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Classify maps a raw update to exactly one message kind. The priority
// order is fixed and load-bearing: text > audio > document > voice.
// The protocol is not expected to set more than one payload, but if it
// ever does, the first match wins.
func Classify(update tgbotapi.Update) *domain.Message {
	m := update.Message
	if m == nil || m.Chat == nil {
		return nil
	}

	msg := &domain.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
	}
	if m.From != nil {
		msg.SenderID = m.From.ID
	}

	switch {
	case m.Text != "":
		msg.Kind = domain.KindText
		msg.Text = m.Text
	case m.Audio != nil:
		msg.Kind = domain.KindAudio
		msg.FileID = m.Audio.FileID
		msg.FileName = m.Audio.FileName
		msg.MimeType = m.Audio.MimeType
		msg.FileSize = int64(m.Audio.FileSize)
		msg.Duration = m.Audio.Duration
	case m.Document != nil:
		msg.Kind = domain.KindDocument
		msg.FileID = m.Document.FileID
		msg.FileName = m.Document.FileName
		msg.MimeType = m.Document.MimeType
		msg.FileSize = int64(m.Document.FileSize)
	case m.Voice != nil:
		msg.Kind = domain.KindVoice
		msg.FileID = m.Voice.FileID
		msg.MimeType = m.Voice.MimeType
		msg.FileSize = int64(m.Voice.FileSize)
		msg.Duration = m.Voice.Duration
	default:
		msg.Kind = domain.KindUnknown
	}
	return msg
}
