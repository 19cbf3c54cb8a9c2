package domain

// Kind classifies an inbound message into exactly one branch.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindAudio
	KindVoice
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAudio:
		return "audio"
	case KindVoice:
		return "voice"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Message is the classified form of one inbound chat update.
// Classification priority is fixed: text > audio > document > voice.
// If the protocol ever sets more than one payload, the first match wins.
//
// File metadata (FileName, MimeType, FileSize) is declared by the remote
// peer and is untrusted until re-verified after download.
type Message struct {
	Kind      Kind
	ChatID    int64
	MessageID int
	SenderID  int64

	// Text payload (KindText only).
	Text string

	// File payload (audio/voice/document kinds).
	FileID   string
	FileName string
	MimeType string
	FileSize int64
	Duration int // seconds, audio/voice only
}

// HasFile reports whether the message carries a downloadable payload.
func (m *Message) HasFile() bool {
	switch m.Kind {
	case KindAudio, KindVoice, KindDocument:
		return true
	default:
		return false
	}
}
