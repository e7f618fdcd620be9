package notify

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repository lookups when the referenced entity
// does not exist.
var ErrNotFound = errors.New("notify: not found")

// Repository defines all data access operations for the notification domain.
// Batched lookups accept an empty id list without error and return an empty
// map.
type Repository interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetPost(ctx context.Context, id string) (PostPreview, error)
	GetComment(ctx context.Context, id string) (CommentPreview, error)

	ListProfiles(ctx context.Context, ids []string) (map[string]Profile, error)
	ListPosts(ctx context.Context, ids []string) (map[string]PostPreview, error)
	ListComments(ctx context.Context, ids []string) (map[string]CommentPreview, error)

	// ListChangeRows returns up to limit rows for receiverID ordered by
	// created_at descending.
	ListChangeRows(ctx context.Context, receiverID string, limit int) ([]ChangeRow, error)

	// HistoryAvailable reports whether the notifications table exists. The
	// check runs once per process lifetime and is cached afterwards.
	HistoryAvailable(ctx context.Context) bool

	// MarkRead marks a single notification as read. Idempotent.
	MarkRead(ctx context.Context, id string) error
}
