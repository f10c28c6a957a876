package dispatch_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/webitel/im-discord-relay/internal/service/dispatch"
)

func TestFixupEmote(t *testing.T) {
	cases := map[string]string{
		`\\u2764`:         `\u2764`,
		`\u2764`:          `\u2764`,
		`\\\u2764`:        `\u2764`,
		`\\\\u2764`:       `\u2764`,
		`\\ud83d\\udc4d`:  `\ud83d\udc4d`,
		`👍`:               `👍`,
		`custom_emote`:    `custom_emote`,
		`\\n not unicode`: `\\n not unicode`,
		``:                ``,
	}

	for in, want := range cases {
		assert.Equal(t, want, dispatch.FixupEmote(in), "input %q", in)
	}
}

func TestFixupEmoteIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	// Strings over a tiny alphabet hit backslash runs far more often than random text.
	alphabet := []string{`\`, "u", "2", "7", "6", "4", "x"}
	symbol := gen.IntRange(0, len(alphabet)-1).Map(func(i int) string { return alphabet[i] })
	escapeHeavy := gen.SliceOf(symbol).Map(func(parts []string) string { return strings.Join(parts, "") })

	properties.Property("fixup(fixup(x)) == fixup(x)", prop.ForAll(
		func(s string) bool {
			once := dispatch.FixupEmote(s)
			return dispatch.FixupEmote(once) == once
		},
		escapeHeavy,
	))

	properties.Property("fixup leaves no doubled unicode escape", prop.ForAll(
		func(s string) bool {
			return !strings.Contains(dispatch.FixupEmote(s), `\\u`)
		},
		escapeHeavy,
	))

	properties.Property("strings without a backslash are untouched", prop.ForAll(
		func(s string) bool {
			return dispatch.FixupEmote(s) == s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
