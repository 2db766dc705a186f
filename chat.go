package tryon

import "strings"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser    Role = "user"
	RoleStylist Role = "stylist"
)

// ChatMessage is one turn of the stylist conversation.
// A stylist turn carries either text or a generated outfit image.
type ChatMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content,omitempty"`
	ImageURI string `json:"imageUri,omitempty"`
}

const imageTurnPlaceholder = "[An outfit image was generated]"

// FormatTranscript renders the history as one labelled line per turn.
func FormatTranscript(history []ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		switch {
		case msg.Role == RoleUser:
			lines = append(lines, "User: "+msg.Content)
		case msg.ImageURI != "" && msg.Content == "":
			lines = append(lines, "Stylist: "+imageTurnPlaceholder)
		default:
			lines = append(lines, "Stylist: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}
