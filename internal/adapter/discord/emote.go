package discord

import (
	"encoding/json"
	"strings"
)

// reactionTarget turns a command emote into the form the REST API expects:
// a unicode emoji, or name:id for a custom emoji.
//
// [ESCAPES]
// Emotes arrive with literal \uXXXX sequences (surrogate pairs included);
// they are interpreted here. Text that does not decode is used verbatim.
func reactionTarget(emote string) string {
	if strings.Contains(emote, `\u`) {
		quoted := `"` + strings.ReplaceAll(emote, `"`, `\"`) + `"`
		var decoded string
		if err := json.Unmarshal([]byte(quoted), &decoded); err == nil {
			emote = decoded
		}
	}

	// <:name:id> and <a:name:id> mention forms
	if strings.HasPrefix(emote, "<") && strings.HasSuffix(emote, ">") {
		inner := strings.TrimSuffix(strings.TrimPrefix(emote, "<"), ">")
		inner = strings.TrimPrefix(inner, "a")
		return strings.TrimPrefix(inner, ":")
	}
	return emote
}
