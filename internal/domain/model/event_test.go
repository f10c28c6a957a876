package model_test

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

func sf(v uint64) *model.Snowflake {
	s := model.Snowflake(v)
	return &s
}

func str(v string) *string { return &v }

func TestEventRoundTrip(t *testing.T) {
	cases := []model.Eventer{
		&model.ContentReceived{
			EventHeader:   model.EventHeader{Kind: model.ContentReceivedKind, Timestamp: 1},
			MessageID:     18446744073709551615,
			Channel:       model.NewNamedEntity(10, "general"),
			Author:        model.NewNamedEntity(20, "wopr"),
			Content:       "shall we play a game?",
			AttachmentURI: str("https://cdn.example/a.png"),
		},
		&model.ContentReceived{
			EventHeader: model.EventHeader{Kind: model.ContentReceivedKind, Timestamp: 2},
			MessageID:   5,
			Channel:     model.NamedEntity{ID: sf(10)},
			Author:      model.NamedEntity{Name: str("anon")},
		},
		&model.ContentUpdated{
			EventHeader:    model.EventHeader{Kind: model.ContentUpdatedKind, Timestamp: 3},
			MessageID:      7,
			PriorMessageID: sf(6),
			Channel:        model.NewNamedEntity(10, "general"),
			Author:         model.NewNamedEntity(20, "wopr"),
			Content:        "edited",
		},
		&model.ContentUpdated{
			EventHeader: model.EventHeader{Kind: model.ContentUpdatedKind, Timestamp: 4},
			MessageID:   7,
		},
		&model.ContentDeleted{
			EventHeader: model.EventHeader{Kind: model.ContentDeletedKind, Timestamp: 5},
			MessageID:   7,
			Channel:     model.NewNamedEntity(10, "general"),
		},
		&model.ReactionAdded{
			EventHeader: model.EventHeader{Kind: model.ReactionAddedKind, Timestamp: 6},
			MessageID:   7,
			Channel:     model.NewNamedEntity(10, "general"),
			Emote:       "❤",
		},
		&model.ReactionRemoved{
			EventHeader: model.EventHeader{Kind: model.ReactionRemovedKind, Timestamp: 7},
			MessageID:   7,
			Channel:     model.NewNamedEntity(10, "general"),
			Emote:       "👍",
		},
		&model.UserUpdated{
			EventHeader: model.EventHeader{Kind: model.UserUpdatedKind, Timestamp: 8},
			User:        model.NewNamedEntity(20, "wopr"),
			Status:      "online",
			Activity:    model.Activity{Name: str("Global Thermonuclear War"), Type: str("Playing")},
		},
		&model.UserUpdated{
			EventHeader: model.EventHeader{Kind: model.UserUpdatedKind, Timestamp: 9},
			Guild:       model.NewNamedEntity(30, "norad"),
			User:        model.NamedEntity{ID: sf(20)},
			Status:      "idle",
		},
		&model.Connected{EventHeader: model.EventHeader{Kind: model.ConnectedKind, Timestamp: 10}},
		&model.Disconnected{EventHeader: model.EventHeader{Kind: model.DisconnectedKind, Timestamp: 11}},
		&model.Disconnected{
			EventHeader: model.EventHeader{Kind: model.DisconnectedKind, Timestamp: 12},
			Reason:      str("websocket closed"),
		},
	}

	for _, ev := range cases {
		t.Run(string(ev.GetKind()), func(t *testing.T) {
			data, err := model.EncodeEvent(ev)
			require.NoError(t, err)

			decoded, err := model.DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestEventWireFormat(t *testing.T) {
	ev := &model.ReactionAdded{
		EventHeader: model.EventHeader{Kind: model.ReactionAddedKind, Timestamp: 42},
		MessageID:   736302317674037288,
		Channel:     model.NamedEntity{ID: sf(1)},
		Emote:       "x",
	}

	data, err := model.EncodeEvent(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ReactionAdded", raw["kind"])
	assert.Equal(t, "736302317674037288", raw["messageId"])
	assert.Equal(t, map[string]any{"id": "1", "name": nil}, raw["channel"])
	assert.Equal(t, "discord.event.ReactionAdded", ev.GetRoutingKey())
}

func TestDecodeEventRejectsUnknownKind(t *testing.T) {
	_, err := model.DecodeEvent([]byte(`{"kind":"Exploded","timestamp":1}`))
	assert.ErrorIs(t, err, model.ErrUnknownKind)

	_, err = model.DecodeEvent([]byte(`{"kind":`))
	assert.ErrorIs(t, err, model.ErrMalformed)

	_, err = model.DecodeEvent([]byte(`{"kind":"ContentDeleted","messageId":"1.5"}`))
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestEventRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	optString := gen.PtrOf(gen.AnyString())
	optID := gen.PtrOf(gen.UInt64().Map(func(v uint64) model.Snowflake { return model.Snowflake(v) }))

	properties.Property("decode(encode(ContentUpdated)) == ContentUpdated", prop.ForAll(
		func(ts int64, id uint64, prior *model.Snowflake, chName, content string, attachment *string) bool {
			ev := &model.ContentUpdated{
				EventHeader:    model.EventHeader{Kind: model.ContentUpdatedKind, Timestamp: ts},
				MessageID:      model.Snowflake(id),
				PriorMessageID: prior,
				Channel:        model.NamedEntity{Name: model.StringPtr(chName)},
				Content:        content,
				AttachmentURI:  attachment,
			}
			data, err := model.EncodeEvent(ev)
			if err != nil {
				return false
			}
			decoded, err := model.DecodeEvent(data)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(ev, decoded)
		},
		gen.Int64(), gen.UInt64(), optID, gen.AnyString(), gen.AnyString(), optString,
	))

	properties.Property("decode(encode(UserUpdated)) == UserUpdated", prop.ForAll(
		func(guild, user *model.Snowflake, status string, name, kind, details *string) bool {
			ev := &model.UserUpdated{
				EventHeader: model.EventHeader{Kind: model.UserUpdatedKind, Timestamp: 1},
				Guild:       model.NamedEntity{ID: guild},
				User:        model.NamedEntity{ID: user, Name: name},
				Status:      status,
				Activity:    model.Activity{Name: name, Type: kind, Details: details},
			}
			data, err := model.EncodeEvent(ev)
			if err != nil {
				return false
			}
			decoded, err := model.DecodeEvent(data)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(ev, decoded)
		},
		optID, optID, gen.AlphaString(), optString, optString, optString,
	))

	properties.TestingRun(t)
}
