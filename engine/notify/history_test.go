package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLoader_LoadHistory(t *testing.T) {
	ctx := context.Background()
	t.Run("Should return an empty slice when history is unavailable", func(t *testing.T) {
		repo := newFakeRepo()
		repo.historyAvailable = false
		loader := NewHistoryLoader(repo, nil)
		out, err := loader.LoadHistory(ctx, "u1", 10)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Empty(t, out)
		assert.Zero(t, repo.lookupCount(), "no lookups when the table is missing")
	})
	t.Run("Should propagate page fetch errors", func(t *testing.T) {
		repo := newFakeRepo()
		repo.listErr = errors.New("connection refused")
		loader := NewHistoryLoader(repo, nil)
		_, err := loader.LoadHistory(ctx, "u1", 10)
		require.Error(t, err)
		assert.ErrorContains(t, err, "list change rows")
	})
	t.Run("Should issue exactly one batched lookup per referenced type", func(t *testing.T) {
		repo := newFakeRepo()
		repo.profiles["u2"] = Profile{ID: "u2", Username: "maria"}
		repo.profiles["u3"] = Profile{ID: "u3", Username: "jorge"}
		repo.posts["p1"] = PostPreview{ID: "p1", Content: "hola"}
		repo.rows = []ChangeRow{
			{ID: "n1", Type: TypePostLike, SenderID: strPtr("u2"), ReceiverID: "u1", PostID: strPtr("p1")},
			{ID: "n2", Type: TypePostLike, SenderID: strPtr("u3"), ReceiverID: "u1", PostID: strPtr("p1")},
			{ID: "n3", Type: TypeFriendRequest, SenderID: strPtr("u2"), ReceiverID: "u1"},
		}
		loader := NewHistoryLoader(repo, nil)
		out, err := loader.LoadHistory(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, out, 3)

		require.Len(t, repo.listCalls, 2, "comments batch skipped, others issued once")
		byKind := map[string][]string{}
		for _, call := range repo.listCalls {
			byKind[call[0]] = call[1:]
		}
		assert.ElementsMatch(t, []string{"u2", "u3"}, byKind["profiles"], "ids distinct across the page")
		assert.Equal(t, []string{"p1"}, byKind["posts"])
		assert.Empty(t, repo.getCalls, "history never issues per-row fetches")
	})
	t.Run("Should materialize rows with defaults for missing references", func(t *testing.T) {
		repo := newFakeRepo()
		repo.rows = []ChangeRow{
			{ID: "n1", Type: TypeMessage, SenderID: strPtr("u2"), ReceiverID: "u1"},
			{ID: "n2", Type: TypeMessage, ReceiverID: "u1"},
		}
		metrics := &Metrics{}
		loader := NewHistoryLoader(repo, metrics)
		out, err := loader.LoadHistory(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, Profile{ID: "u2", Username: FallbackUsername}, out[0].Sender)
		assert.Equal(t, Profile{ID: SystemSenderID, Username: SystemUsername}, out[1].Sender)
		require.NotNil(t, out[1].Message)
		assert.Equal(t, SystemDefaultMessage, *out[1].Message)
		assert.Equal(t, int64(1), metrics.View().SenderFallbacks, "system rows are not fallbacks")
	})
	t.Run("Should degrade a failed batch to defaults for every affected row", func(t *testing.T) {
		repo := newFakeRepo()
		repo.failProfiles = true
		repo.posts["p1"] = PostPreview{ID: "p1", Content: "hola"}
		repo.rows = []ChangeRow{
			{ID: "n1", Type: TypePostLike, SenderID: strPtr("u2"), ReceiverID: "u1", PostID: strPtr("p1")},
		}
		loader := NewHistoryLoader(repo, nil)
		out, err := loader.LoadHistory(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, FallbackUsername, out[0].Sender.Username)
		require.NotNil(t, out[0].PostContent, "other batches are unaffected")
		assert.Equal(t, "hola", *out[0].PostContent)
	})
	t.Run("Should produce records field-identical to the push path", func(t *testing.T) {
		repo := newFakeRepo()
		repo.profiles["u2"] = Profile{ID: "u2", Username: "maria", AvatarURL: strPtr("https://cdn/a.png")}
		repo.posts["p1"] = PostPreview{ID: "p1", Content: "hola mundo", MediaURL: strPtr("https://cdn/p.jpg")}
		repo.comments["c1"] = CommentPreview{ID: "c1", Content: "buen punto"}
		rows := []ChangeRow{
			{
				ID:         "n1",
				Type:       TypePostComment,
				SenderID:   strPtr("u2"),
				ReceiverID: "u1",
				PostID:     strPtr("p1"),
				CommentID:  strPtr("c1"),
				CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			{ID: "n2", Type: TypeMessage, ReceiverID: "u1", CreatedAt: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)},
			{ID: "n3", Type: TypePostLike, SenderID: strPtr("missing"), ReceiverID: "u1", PostID: strPtr("gone")},
		}
		repo.rows = rows

		loader := NewHistoryLoader(repo, nil)
		fromHistory, err := loader.LoadHistory(ctx, "u1", 10)
		require.NoError(t, err)
		require.Len(t, fromHistory, len(rows))

		enricher := NewEnricher(repo, nil)
		for i, row := range rows {
			fromPush, _ := enricher.Enrich(ctx, row)
			assert.Equal(t, fromPush, fromHistory[i], "row %s", row.ID)
		}
	})
}
