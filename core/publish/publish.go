// Package publish posts drafts to a VK community wall.
package publish

import (
	"context"
	"errors"

	"github.com/SevereCloud/vksdk/v3/api"
)

// Publisher is the publish collaborator used by the draft state machine.
type Publisher interface {
	// UploadImage turns an image URL into a wall attachment reference.
	UploadImage(ctx context.Context, imageURL string) (string, error)
	// Publish posts text with an optional attachment and returns the post id.
	Publish(ctx context.Context, text, attachment string) (int64, error)
	// Search returns up to limit post texts about topic.
	Search(ctx context.Context, topic string, limit int) ([]string, error)
}

// Reason returns the text shown to the user for a failed call:
// the VK error_msg when there is one, else the error text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
