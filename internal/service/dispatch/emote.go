package dispatch

import "strings"

const (
	doubledUnicodeEscape = `\\u`
	unicodeEscape        = `\u`
)

// FixupEmote collapses a doubled escape before a unicode code point (`\\u`)
// into a single one (`\u`). Some producer in the chain escapes emoji twice.
// The loop runs to a fixed point, so FixupEmote(FixupEmote(x)) == FixupEmote(x).
func FixupEmote(emote string) string {
	for strings.Contains(emote, doubledUnicodeEscape) {
		emote = strings.ReplaceAll(emote, doubledUnicodeEscape, unicodeEscape)
	}
	return emote
}
