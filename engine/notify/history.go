package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/lazoapp/lazo/pkg/logger"
)

// DefaultHistoryLimit bounds history pages when the caller passes no limit.
const DefaultHistoryLimit = 100

// HistoryLoader is the pull counterpart of the enricher: it materializes a
// page of historical rows with one batched lookup per referenced entity type
// instead of per-row fetches. For identical row data its output is
// field-identical to the push path.
type HistoryLoader struct {
	repo    Repository
	metrics *Metrics
}

// NewHistoryLoader creates a history loader backed by the given repository.
func NewHistoryLoader(repo Repository, metrics *Metrics) *HistoryLoader {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &HistoryLoader{repo: repo, metrics: metrics}
}

// LoadHistory fetches up to limit rows for receiverID, newest first, and
// returns them fully materialized. When the notifications table is
// unavailable it returns an empty slice, not an error.
func (h *HistoryLoader) LoadHistory(ctx context.Context, receiverID string, limit int) ([]Notification, error) {
	if !h.repo.HistoryAvailable(ctx) {
		return []Notification{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := h.repo.ListChangeRows(ctx, receiverID, limit)
	if err != nil {
		return nil, fmt.Errorf("notify: list change rows: %w", err)
	}
	h.metrics.recordHistoryLoad()

	senderIDs, postIDs, commentIDs := collectReferenceIDs(rows)
	profiles, posts, comments := h.fetchBatches(ctx, senderIDs, postIDs, commentIDs)

	out := make([]Notification, 0, len(rows))
	for _, row := range rows {
		lookups := rowLookups{}
		if row.SenderID != nil {
			if profile, ok := profiles[*row.SenderID]; ok {
				lookups.sender = available(profile)
			} else {
				h.metrics.recordSenderFallback()
			}
		}
		if row.PostID != nil {
			if post, ok := posts[*row.PostID]; ok {
				lookups.post = available(post)
			}
		}
		if row.CommentID != nil {
			if comment, ok := comments[*row.CommentID]; ok {
				lookups.comment = available(comment)
			}
		}
		out = append(out, materialize(row, lookups))
	}
	return out, nil
}

// collectReferenceIDs gathers the distinct non-nil reference ids across the
// whole page, preserving first-seen order.
func collectReferenceIDs(rows []ChangeRow) (senderIDs, postIDs, commentIDs []string) {
	seenSenders := map[string]struct{}{}
	seenPosts := map[string]struct{}{}
	seenComments := map[string]struct{}{}
	for _, row := range rows {
		if row.SenderID != nil {
			if _, ok := seenSenders[*row.SenderID]; !ok {
				seenSenders[*row.SenderID] = struct{}{}
				senderIDs = append(senderIDs, *row.SenderID)
			}
		}
		if row.PostID != nil {
			if _, ok := seenPosts[*row.PostID]; !ok {
				seenPosts[*row.PostID] = struct{}{}
				postIDs = append(postIDs, *row.PostID)
			}
		}
		if row.CommentID != nil {
			if _, ok := seenComments[*row.CommentID]; !ok {
				seenComments[*row.CommentID] = struct{}{}
				commentIDs = append(commentIDs, *row.CommentID)
			}
		}
	}
	return senderIDs, postIDs, commentIDs
}

// fetchBatches issues the three batched lookups concurrently, skipping empty
// id lists. A failed batch degrades to an empty map so every affected row
// falls back to defaults, mirroring the per-row policy of the push path.
func (h *HistoryLoader) fetchBatches(
	ctx context.Context,
	senderIDs, postIDs, commentIDs []string,
) (map[string]Profile, map[string]PostPreview, map[string]CommentPreview) {
	profiles := map[string]Profile{}
	posts := map[string]PostPreview{}
	comments := map[string]CommentPreview{}
	var wg sync.WaitGroup
	if len(senderIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.repo.ListProfiles(ctx, senderIDs)
			if err != nil {
				logger.FromContext(ctx).Warn("batched profile lookup failed", "error", err)
				return
			}
			profiles = result
		}()
	}
	if len(postIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.repo.ListPosts(ctx, postIDs)
			if err != nil {
				logger.FromContext(ctx).Warn("batched post lookup failed", "error", err)
				return
			}
			posts = result
		}()
	}
	if len(commentIDs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := h.repo.ListComments(ctx, commentIDs)
			if err != nil {
				logger.FromContext(ctx).Warn("batched comment lookup failed", "error", err)
				return
			}
			comments = result
		}()
	}
	wg.Wait()
	return profiles, posts, comments
}
