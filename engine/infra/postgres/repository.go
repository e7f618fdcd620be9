package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lazoapp/lazo/engine/notify"
	"github.com/lazoapp/lazo/pkg/logger"
)

// DB is the subset of pgxpool.Pool the repository depends on. Keeping it
// narrow lets tests substitute a mock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var profileColumns = []string{"id", "username", "avatar_url"}
var postColumns = []string{"id", "content", "media_url"}
var commentColumns = []string{"id", "content"}
var notificationColumns = []string{
	"id",
	"type",
	"sender_id",
	"receiver_id",
	"post_id",
	"comment_id",
	"message",
	"read",
	"created_at",
}

// Repository implements notify.Repository on PostgreSQL.
type Repository struct {
	db DB

	probeOnce sync.Once
	available bool
}

// NewRepository creates a repository over the given pool or mock.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

func selectBuilder(columns []string, table string) squirrel.SelectBuilder {
	return squirrel.
		Select(columns...).
		From(table).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *Repository) GetProfile(ctx context.Context, id string) (notify.Profile, error) {
	query, args, err := selectBuilder(profileColumns, "profiles").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return notify.Profile{}, fmt.Errorf("build get profile query: %w", err)
	}
	var profile notify.Profile
	if err := pgxscan.Get(ctx, r.db, &profile, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return notify.Profile{}, notify.ErrNotFound
		}
		return notify.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return profile, nil
}

func (r *Repository) GetPost(ctx context.Context, id string) (notify.PostPreview, error) {
	query, args, err := selectBuilder(postColumns, "posts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return notify.PostPreview{}, fmt.Errorf("build get post query: %w", err)
	}
	var post notify.PostPreview
	if err := pgxscan.Get(ctx, r.db, &post, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return notify.PostPreview{}, notify.ErrNotFound
		}
		return notify.PostPreview{}, fmt.Errorf("get post %s: %w", id, err)
	}
	return post, nil
}

func (r *Repository) GetComment(ctx context.Context, id string) (notify.CommentPreview, error) {
	query, args, err := selectBuilder(commentColumns, "comments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return notify.CommentPreview{}, fmt.Errorf("build get comment query: %w", err)
	}
	var comment notify.CommentPreview
	if err := pgxscan.Get(ctx, r.db, &comment, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return notify.CommentPreview{}, notify.ErrNotFound
		}
		return notify.CommentPreview{}, fmt.Errorf("get comment %s: %w", id, err)
	}
	return comment, nil
}

func (r *Repository) ListProfiles(ctx context.Context, ids []string) (map[string]notify.Profile, error) {
	out := map[string]notify.Profile{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := selectBuilder(profileColumns, "profiles").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list profiles query: %w", err)
	}
	var rows []notify.Profile
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) ListPosts(ctx context.Context, ids []string) (map[string]notify.PostPreview, error) {
	out := map[string]notify.PostPreview{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := selectBuilder(postColumns, "posts").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list posts query: %w", err)
	}
	var rows []notify.PostPreview
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) ListComments(ctx context.Context, ids []string) (map[string]notify.CommentPreview, error) {
	out := map[string]notify.CommentPreview{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := selectBuilder(commentColumns, "comments").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list comments query: %w", err)
	}
	var rows []notify.CommentPreview
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) ListChangeRows(ctx context.Context, receiverID string, limit int) ([]notify.ChangeRow, error) {
	builder := selectBuilder(notificationColumns, "notifications").
		Where(squirrel.Eq{"receiver_id": receiverID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notifications query: %w", err)
	}
	var rows []notify.ChangeRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// HistoryAvailable probes for the notifications table once per repository
// lifetime; the outcome is cached, including a negative one.
func (r *Repository) HistoryAvailable(ctx context.Context) bool {
	r.probeOnce.Do(func() {
		var regclass *string
		row := r.db.QueryRow(ctx, "SELECT to_regclass('public.notifications')")
		if err := row.Scan(&regclass); err != nil {
			logger.FromContext(ctx).Warn("notifications table probe failed", "error", err)
			return
		}
		r.available = regclass != nil
	})
	return r.available
}

// InsertChangeRow persists a change-feed row. Used by the publish tooling;
// the delivery pipeline itself never writes.
func (r *Repository) InsertChangeRow(ctx context.Context, row notify.ChangeRow) error {
	query, args, err := squirrel.
		Insert("notifications").
		Columns(notificationColumns...).
		Values(
			row.ID,
			string(row.Type),
			row.SenderID,
			row.ReceiverID,
			row.PostID,
			row.CommentID,
			row.Message,
			row.Read,
			row.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notification query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification %s: %w", row.ID, err)
	}
	return nil
}

func (r *Repository) MarkRead(ctx context.Context, id string) error {
	query, args, err := squirrel.
		Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark read query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}
