package notify

import (
	"context"
	"sync"

	"github.com/lazoapp/lazo/pkg/logger"
)

// lookupResult models one best-effort reference fetch: either a value or
// "unavailable". Keeping the fallback policy on this type makes it exhaustive
// instead of incidental.
type lookupResult[T any] struct {
	value T
	ok    bool
}

func available[T any](v T) lookupResult[T] { return lookupResult[T]{value: v, ok: true} }

// rowLookups carries the resolved references for a single row. The push path
// fills it from per-row fetches, the pull path from batched in-memory maps;
// materialize treats both identically.
type rowLookups struct {
	sender  lookupResult[Profile]
	post    lookupResult[PostPreview]
	comment lookupResult[CommentPreview]
}

// materialize builds the canonical notification for a row from its resolved
// lookups, applying the defaulting rules shared by the push and pull paths.
func materialize(row ChangeRow, l rowLookups) Notification {
	n := Notification{
		ID:         row.ID,
		Type:       row.Type,
		CreatedAt:  row.CreatedAt,
		Read:       row.Read,
		ReceiverID: row.ReceiverID,
		Message:    row.Message,
		PostID:     row.PostID,
		CommentID:  row.CommentID,
	}
	if row.SenderID == nil {
		n.SenderID = SystemSenderID
		n.Sender = Profile{ID: SystemSenderID, Username: SystemUsername}
		if n.Message == nil {
			msg := SystemDefaultMessage
			n.Message = &msg
		}
		return n
	}
	n.SenderID = *row.SenderID
	if l.sender.ok {
		n.Sender = l.sender.value
	} else {
		n.Sender = Profile{ID: *row.SenderID, Username: FallbackUsername}
	}
	if row.PostID != nil && l.post.ok {
		content := l.post.value.Content
		n.PostContent = &content
		n.PostMedia = l.post.value.MediaURL
	}
	if row.CommentID != nil && l.comment.ok {
		content := l.comment.value.Content
		n.CommentContent = &content
	}
	return n
}

// Enricher turns raw change-feed rows into canonical notifications by
// resolving their references with graceful degradation.
type Enricher struct {
	repo    Repository
	metrics *Metrics
}

// NewEnricher creates an enricher backed by the given repository.
func NewEnricher(repo Repository, metrics *Metrics) *Enricher {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Enricher{repo: repo, metrics: metrics}
}

// Enrich resolves one row into a canonical notification and its alert pair.
// Lookup failures degrade to defaults; Enrich itself never fails.
//
// Rows without a sender reference take a fast path: system defaults, no
// lookups, and the generic system alert regardless of type.
func (e *Enricher) Enrich(ctx context.Context, row ChangeRow) (Notification, Alert) {
	if row.SenderID == nil {
		e.metrics.recordSystemRow()
		n := materialize(row, rowLookups{})
		return n, SystemAlert(stringValue(row.Message))
	}

	lookups := e.fetchRowLookups(ctx, row)
	if !lookups.sender.ok {
		e.metrics.recordSenderFallback()
	}
	n := materialize(row, lookups)
	return n, FormatAlert(row.Type, n.Sender.Username, row)
}

// fetchRowLookups resolves the row's sender, post and comment references
// concurrently. Each fetch is independent and best-effort.
func (e *Enricher) fetchRowLookups(ctx context.Context, row ChangeRow) rowLookups {
	var (
		wg      sync.WaitGroup
		lookups rowLookups
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		profile, err := e.repo.GetProfile(ctx, *row.SenderID)
		if err != nil {
			logger.FromContext(ctx).Debug("sender profile lookup failed",
				"sender_id", *row.SenderID, "error", err)
			return
		}
		lookups.sender = available(profile)
	}()
	if row.PostID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post, err := e.repo.GetPost(ctx, *row.PostID)
			if err != nil {
				logger.FromContext(ctx).Debug("post lookup failed",
					"post_id", *row.PostID, "error", err)
				return
			}
			lookups.post = available(post)
		}()
	}
	if row.CommentID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comment, err := e.repo.GetComment(ctx, *row.CommentID)
			if err != nil {
				logger.FromContext(ctx).Debug("comment lookup failed",
					"comment_id", *row.CommentID, "error", err)
				return
			}
			lookups.comment = available(comment)
		}()
	}
	wg.Wait()
	return lookups
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
