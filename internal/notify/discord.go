package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts escalation events to a Discord channel as embeds.
type Discord struct {
	sess    discordSession
	channel string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	BotToken string
	Channel  string // channel ID to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSession
}

// NewDiscord creates a Discord notifier. The REST path needs no gateway
// connection, so the session is never opened.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	d := &Discord{sess: opts.Session, channel: opts.Channel}
	if d.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		d.sess = dg
	}
	return d, nil
}

// Name identifies the platform.
func (d *Discord) Name() string { return "discord" }

// Notify posts evt as an embed.
func (d *Discord) Notify(ctx context.Context, evt Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
		Color:       embedColor(evt.Severity),
	}
	if evt.VIN != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "VIN", Value: evt.VIN, Inline: true})
	}
	if evt.Zone != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Zone", Value: evt.Zone, Inline: true})
	}

	if _, err := d.sess.ChannelMessageSendEmbed(d.channel, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// embedColor maps severity to a Discord embed color int.
func embedColor(severity string) int {
	if severity == SeverityRed {
		return 0xd0021b
	}
	return 0xf5a623
}
