package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord posts messages to one channel through the bot REST API. No gateway
// connection is opened.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(msg string) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		return fmt.Errorf("send to channel %s: %w", d.channelID, err)
	}
	return nil
}
