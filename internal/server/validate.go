package server

import (
	"fmt"
	"strings"

	"github.com/runger/cmdvault/internal/storage"
)

// Validation limits for saved-command payloads.
const (
	MaxTextLen        = 10240 // 10KB
	MaxTitleLen       = 256
	MaxDescriptionLen = 2048
	MaxPlatformLen    = 256
	MaxTags           = 20
	MaxTagLen         = 64
)

// validateCommand checks a saved-command payload, normalizing fields
// in-place. It returns an empty string when the payload is valid, or a
// human-readable rejection message.
func validateCommand(req *CommandRequest) string {
	req.Text = strings.TrimSpace(req.Text)
	req.Title = strings.TrimSpace(req.Title)

	if req.Text == "" {
		return "text is required and must be non-empty"
	}
	if len(req.Text) > MaxTextLen {
		return fmt.Sprintf("text exceeds max length %d", MaxTextLen)
	}
	if len(req.Title) > MaxTitleLen {
		return fmt.Sprintf("title exceeds max length %d", MaxTitleLen)
	}
	if len(req.Description) > MaxDescriptionLen {
		return fmt.Sprintf("description exceeds max length %d", MaxDescriptionLen)
	}
	if len(req.Platform) > MaxPlatformLen {
		return fmt.Sprintf("platform exceeds max length %d", MaxPlatformLen)
	}

	switch req.Visibility {
	case "", storage.VisibilityPublic, storage.VisibilityPrivate:
	default:
		return "visibility must be PUBLIC or PRIVATE"
	}

	if len(req.Tags) > MaxTags {
		return fmt.Sprintf("at most %d tags allowed", MaxTags)
	}
	for i, tag := range req.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return "tags must be non-empty"
		}
		if len(tag) > MaxTagLen {
			return fmt.Sprintf("tag exceeds max length %d", MaxTagLen)
		}
		req.Tags[i] = tag
	}
	return ""
}
