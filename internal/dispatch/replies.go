package dispatch

import (
	"fmt"

	"mediagate/internal/domain"
)

// User-facing reply texts. These are fixed and deliberately free of any
// detail from the failure itself: internals go to the log, not the chat.
const (
	replyGreeting = "Hello! I'm a secure media gateway bot. Send me audio, voice messages, or documents."
	replyHelp     = "Available commands:\n/start - Start the bot\n/help - Show this help message"

	replyEmptyText   = "I received an empty message."
	replyUnsupported = "I received a message but don't know how to process this type."
	replyUnexpected  = "Sorry, an error occurred while processing your message."
	replyDocReceived = "Successfully received your document. Processing..."
)

// noun returns the user-facing name of a file-bearing message kind.
func noun(kind domain.Kind) string {
	switch kind {
	case domain.KindVoice:
		return "voice message"
	case domain.KindDocument:
		return "document"
	default:
		return "audio"
	}
}

func rejectTypeReply(kind domain.Kind) string {
	switch kind {
	case domain.KindVoice:
		return "Sorry, this voice format is not supported."
	case domain.KindDocument:
		return "Sorry, this document type is not supported."
	default:
		return "Sorry, this audio format is not supported."
	}
}

// rejectSizeReply derives the advertised limit from the configured
// ceiling instead of hard-coding a figure that could drift from it.
func rejectSizeReply(kind domain.Kind, maxBytes int64) string {
	mb := maxBytes / (1024 * 1024)
	switch kind {
	case domain.KindVoice:
		return fmt.Sprintf("The voice message is too large. Maximum size is %d MB.", mb)
	case domain.KindDocument:
		return fmt.Sprintf("The document is too large. Maximum size is %d MB.", mb)
	default:
		return fmt.Sprintf("The audio file is too large. Maximum size is %d MB.", mb)
	}
}

func downloadFailedReply(kind domain.Kind) string {
	return fmt.Sprintf("Error processing %s: Unable to download the file.", noun(kind))
}

func processingFailedReply(kind domain.Kind) string {
	return fmt.Sprintf("Error processing %s: File processing failed.", noun(kind))
}
