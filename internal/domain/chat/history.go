package chat

import (
	"fmt"
	"strings"
)

// FormatHistory renders the last maxTurns messages as conversation context
// for an agent prompt. Messages arrive ascending by time; only the tail of
// the window is kept.
func FormatHistory(messages []Message, maxTurns int) string {
	if len(messages) == 0 {
		return ""
	}
	if maxTurns > 0 && len(messages) > maxTurns {
		messages = messages[len(messages)-maxTurns:]
	}

	var sb strings.Builder
	sb.WriteString("Conversación reciente:\n")
	for _, msg := range messages {
		label := "Usuario"
		if msg.Sender == SenderBot {
			label = "Asistente"
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, msg.Body)
	}
	return sb.String()
}
