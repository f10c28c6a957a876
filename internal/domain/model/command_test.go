package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want model.Commander
	}{
		{
			name: "add content",
			raw:  `{"kind":"AddContent","channelId":"123","content":"hello"}`,
			want: model.NewAddContent(123, "hello"),
		},
		{
			name: "remove content",
			raw:  `{"kind":"RemoveContent","channelId":"1","messageId":"2"}`,
			want: model.NewRemoveContent(1, 2),
		},
		{
			name: "add reaction keeps the raw emote",
			raw:  `{"kind":"AddReaction","channelId":"1","messageId":"2","emote":"\\\\u2764"}`,
			want: model.NewAddReaction(1, 2, `\\u2764`),
		},
		{
			name: "remove reaction",
			raw:  `{"kind":"RemoveReaction","channelId":"1","messageId":"2","emote":"👍"}`,
			want: model.NewRemoveReaction(1, 2, "👍"),
		},
		{
			name: "remove all reactions",
			raw:  `{"kind":"RemoveAllReactions","channelId":"1","messageId":"2"}`,
			want: model.NewRemoveAllReactions(1, 2),
		},
		{
			name: "field order does not matter",
			raw:  `{"content":"x","channelId":"9","kind":"AddContent"}`,
			want: model.NewAddContent(9, "x"),
		},
		{
			name: "max uint64 identifiers are exact",
			raw:  `{"kind":"RemoveContent","channelId":"18446744073709551615","messageId":"18446744073709551614"}`,
			want: model.NewRemoveContent(18446744073709551615, 18446744073709551614),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := model.DecodeCommand([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCommandFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		err  error
	}{
		{"not json", `AddContent`, model.ErrMalformed},
		{"unknown kind", `{"kind":"Launch","channelId":"1"}`, model.ErrUnknownKind},
		{"missing kind", `{"channelId":"1","content":"x"}`, model.ErrUnknownKind},
		{"kind prefix is not enough", `{"kind":"AddContentX","channelId":"1"}`, model.ErrUnknownKind},
		{"float identifier", `{"kind":"AddContent","channelId":"1e3","content":"x"}`, model.ErrMalformed},
		{"missing channel", `{"kind":"AddContent","content":"x"}`, model.ErrMalformed},
		{"missing message", `{"kind":"RemoveContent","channelId":"1"}`, model.ErrMalformed},
		{"missing emote", `{"kind":"AddReaction","channelId":"1","messageId":"2"}`, model.ErrMalformed},
		{"wrong field type", `{"kind":"AddContent","channelId":"1","content":5}`, model.ErrMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.DecodeCommand([]byte(tc.raw))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	data, err := model.EncodeCommand(model.NewAddReaction(1, 2, "x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"AddReaction","channelId":"1","messageId":"2","emote":"x"}`, string(data))
	assert.Equal(t, "discord.command.AddReaction", model.AddReactionKind.RoutingKey())
}

func TestSnowflakeAcceptsBareIntegers(t *testing.T) {
	got, err := model.DecodeCommand([]byte(`{"kind":"AddContent","channelId":123,"content":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, model.Snowflake(123), got.GetChannelID())
}
