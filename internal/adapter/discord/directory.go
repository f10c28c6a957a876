package discord

import (
	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/webitel/im-discord-relay/internal/service/capture"
)

const defaultDirectorySize = 10000

// Directory resolves channel and guild names from the gateway state.
//
// [CACHE]
// Names seen once are kept in an LRU so events about channels that have just
// been deleted (and dropped from state) still carry a name.
type Directory struct {
	state    *discordgo.State
	channels *lru.Cache[string, string]
	guilds   *lru.Cache[string, string]
}

var _ capture.Lookup = (*Directory)(nil)

func NewDirectory(state *discordgo.State, size int) *Directory {
	if size <= 0 {
		size = defaultDirectorySize
	}
	channels, _ := lru.New[string, string](size)
	guilds, _ := lru.New[string, string](size)

	return &Directory{state: state, channels: channels, guilds: guilds}
}

// Remember records a name learned outside the gateway state, e.g. from REST.
func (d *Directory) Remember(channelID, name string) {
	if channelID != "" && name != "" {
		d.channels.Add(channelID, name)
	}
}

func (d *Directory) ChannelName(channelID string) (string, bool) {
	if channelID == "" {
		return "", false
	}
	if d.state != nil {
		if ch, err := d.state.Channel(channelID); err == nil {
			if name := channelName(ch); name != "" {
				d.channels.Add(channelID, name)
				return name, true
			}
		}
	}
	return d.channels.Get(channelID)
}

func (d *Directory) GuildName(guildID string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	if d.state != nil {
		if g, err := d.state.Guild(guildID); err == nil && g.Name != "" {
			d.guilds.Add(guildID, g.Name)
			return g.Name, true
		}
	}
	return d.guilds.Get(guildID)
}

// Presence looks the user up in one guild, or in every known guild when
// guildID is empty.
func (d *Directory) Presence(guildID, userID string) (*discordgo.Presence, bool) {
	if d.state == nil || userID == "" {
		return nil, false
	}

	if guildID != "" {
		p, err := d.state.Presence(guildID, userID)
		return p, err == nil
	}

	d.state.RLock()
	ids := make([]string, 0, len(d.state.Guilds))
	for _, g := range d.state.Guilds {
		ids = append(ids, g.ID)
	}
	d.state.RUnlock()

	for _, id := range ids {
		if p, err := d.state.Presence(id, userID); err == nil {
			return p, true
		}
	}
	return nil, false
}

// channelName renders direct-message channels as @recipient.
func channelName(ch *discordgo.Channel) string {
	if ch.Name != "" {
		return ch.Name
	}
	if ch.Type == discordgo.ChannelTypeDM && len(ch.Recipients) > 0 && ch.Recipients[0] != nil {
		return "@" + ch.Recipients[0].Username
	}
	return ""
}
