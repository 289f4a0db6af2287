package delivery

import (
	"context"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
)

// Notifier delivers one rendered message to a channel endpoint.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg render.Message) error
}
