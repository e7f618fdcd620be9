package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType enumerates known feed event categories. Unrecognized
// values are preserved verbatim and fall through to the generic alert
// template; they are never rejected.
type NotificationType string

const (
	TypeProfileHeartReceived   NotificationType = "profile_heart_received"
	TypeEngagementHeartsEarned NotificationType = "engagement_hearts_earned"
	TypePostLike               NotificationType = "post_like"
	TypePostComment            NotificationType = "post_comment"
	TypeFriendRequest          NotificationType = "friend_request"
	TypeMessage                NotificationType = "message"
	TypeMention                NotificationType = "mention"
	TypeIdeaRequest            NotificationType = "idea_request"
	TypeIdeaAccepted           NotificationType = "idea_accepted"
	TypeIdeaRejected           NotificationType = "idea_rejected"
)

const (
	// SystemSenderID is the sentinel sender for rows with no sender reference.
	SystemSenderID = "system"
	// SystemUsername labels system-generated notifications.
	SystemUsername = "Sistema"
	// FallbackUsername labels senders whose profile lookup failed.
	FallbackUsername = "Usuario"
	// SystemDefaultMessage fills the message of sender-less rows that carry none.
	SystemDefaultMessage = "Nueva notificación del sistema"
)

// ChangeRow is one raw change-feed row as delivered by the transport or read
// back from the notifications table. It may be partially populated; no
// invariants are enforced here.
type ChangeRow struct {
	ID         string           `json:"id"         db:"id"`
	Type       NotificationType `json:"type"       db:"type"`
	SenderID   *string          `json:"sender_id"  db:"sender_id"`
	ReceiverID string           `json:"receiver_id" db:"receiver_id"`
	PostID     *string          `json:"post_id"    db:"post_id"`
	CommentID  *string          `json:"comment_id" db:"comment_id"`
	Message    *string          `json:"message"    db:"message"`
	Read       bool             `json:"read"       db:"read"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// DecodeChangeRow parses the wire representation of a feed row.
func DecodeChangeRow(payload []byte) (ChangeRow, error) {
	var row ChangeRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return ChangeRow{}, fmt.Errorf("notify: decode change row: %w", err)
	}
	return row, nil
}

// Profile is the resolved sender identity attached to every notification.
type Profile struct {
	ID        string  `json:"id"         db:"id"`
	Username  string  `json:"username"   db:"username"`
	AvatarURL *string `json:"avatar_url" db:"avatar_url"`
}

// PostPreview carries the best-effort post enrichment fields.
type PostPreview struct {
	ID       string  `json:"id"        db:"id"`
	Content  string  `json:"content"   db:"content"`
	MediaURL *string `json:"media_url" db:"media_url"`
}

// CommentPreview carries the best-effort comment enrichment field.
type CommentPreview struct {
	ID      string `json:"id"      db:"id"`
	Content string `json:"content" db:"content"`
}

// Notification is the canonical, UI-ready record produced by both the push
// and pull paths.
//
// SenderID is never empty: rows without a sender reference carry the
// "system" sentinel. Sender is always present; it degrades to a default
// profile when the lookup is unavailable. The enrichment fields
// (PostContent, PostMedia, CommentContent) are absent, never defaulted, when
// the referenced entity cannot be fetched.
type Notification struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	CreatedAt      time.Time        `json:"created_at"`
	Read           bool             `json:"read"`
	SenderID       string           `json:"sender_id"`
	ReceiverID     string           `json:"receiver_id"`
	Message        *string          `json:"message,omitempty"`
	PostID         *string          `json:"post_id,omitempty"`
	CommentID      *string          `json:"comment_id,omitempty"`
	Sender         Profile          `json:"sender"`
	PostContent    *string          `json:"post_content,omitempty"`
	PostMedia      *string          `json:"post_media,omitempty"`
	CommentContent *string          `json:"comment_content,omitempty"`
}
