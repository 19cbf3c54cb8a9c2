// Package answer holds the collaborators that produce replies for
// free-form text messages. The dispatcher only sees the Answerer port;
// whether the reply comes from an echo or a model is invisible to it.
package answer

import (
	"context"
	"fmt"
)

// Echo acknowledges a text message without interpreting it. Message
// content is never logged here.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Answer(ctx context.Context, text string) (string, error) {
	return fmt.Sprintf("You said: %s", text), nil
}
