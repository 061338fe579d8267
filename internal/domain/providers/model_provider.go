package providers

import (
	"context"
	"errors"
)

// ErrModelUnauthorized is returned when the model provider rejects the credentials.
var ErrModelUnauthorized = errors.New("model provider unauthorized")

// ModelProvider is the only network boundary of the recommendation core
type ModelProvider interface {
	// Complete sends the instruction text and returns the model's raw structured text
	Complete(ctx context.Context, instruction string) (string, error)
}
