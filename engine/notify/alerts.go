package notify

import (
	"fmt"
	"regexp"
	"strconv"
)

// Alert is the user-facing (title, description) pair handed to the alert
// callback alongside every delivered notification.
type Alert struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var heartCountPattern = regexp.MustCompile(`\d+`)

type alertTemplate struct {
	title    string
	describe func(sender string, row ChangeRow) string
}

var alertTemplates = map[NotificationType]alertTemplate{
	TypeProfileHeartReceived: {
		title:    "❤️ Nuevo corazón",
		describe: func(sender string, _ ChangeRow) string { return sender + " te envió un corazón" },
	},
	TypeEngagementHeartsEarned: {
		title: "❤️ Corazones ganados",
		describe: func(_ string, row ChangeRow) string {
			return fmt.Sprintf("Ganaste %d corazones", heartCount(row.Message))
		},
	},
	TypePostLike: {
		title:    "👍 Nueva reacción",
		describe: func(sender string, _ ChangeRow) string { return sender + " reaccionó a tu publicación" },
	},
	TypePostComment: {
		title:    "💬 Nuevo comentario",
		describe: func(sender string, _ ChangeRow) string { return sender + " comentó en tu publicación" },
	},
	TypeFriendRequest: {
		title:    "👥 Solicitud de amistad",
		describe: func(sender string, _ ChangeRow) string { return sender + " quiere ser tu amigo" },
	},
	TypeMessage: {
		title:    "📨 Nuevo mensaje",
		describe: func(sender string, _ ChangeRow) string { return "Mensaje de " + sender },
	},
	TypeMention: {
		title:    "📢 Te han mencionado",
		describe: func(sender string, _ ChangeRow) string { return sender + " te mencionó" },
	},
	TypeIdeaRequest: {
		title:    "💡 Nueva solicitud de idea",
		describe: func(sender string, _ ChangeRow) string { return sender + " te envió una solicitud de idea" },
	},
	TypeIdeaAccepted: {
		title:    "✅ Idea aceptada",
		describe: func(sender string, _ ChangeRow) string { return sender + " aceptó tu idea" },
	},
	TypeIdeaRejected: {
		title:    "❌ Idea rechazada",
		describe: func(sender string, _ ChangeRow) string { return sender + " rechazó tu idea" },
	},
}

// FormatAlert renders the alert pair for a sender-bearing row. Unrecognized
// types use the generic template.
func FormatAlert(typ NotificationType, sender string, row ChangeRow) Alert {
	if tmpl, ok := alertTemplates[typ]; ok {
		return Alert{Title: tmpl.title, Description: tmpl.describe(sender, row)}
	}
	return Alert{
		Title:       "🔔 Nueva notificación",
		Description: "Notificación de " + sender,
	}
}

// SystemAlert renders the alert pair for sender-less system rows. These rows
// bypass the type-driven templates entirely; the source behaves this way and
// the asymmetry is kept on purpose.
func SystemAlert(message string) Alert {
	if message == "" {
		message = SystemDefaultMessage
	}
	return Alert{Title: "🔔 Nueva notificación", Description: message}
}

// heartCount extracts the earned-hearts count from the raw message, falling
// back to 1 when no numeric run is present.
func heartCount(message *string) int {
	if message == nil {
		return 1
	}
	match := heartCountPattern.FindString(*message)
	if match == "" {
		return 1
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
