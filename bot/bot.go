package bot

import (
	"context"
	"fmt"
	"time"

	"stickybot/bot/common"
	"stickybot/bot/features/sticky"
	"stickybot/domain/entities"
	"stickybot/domain/services"

	"github.com/bwmarrin/discordgo"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
)

const (
	// repostTimeout bounds the work done for one incoming message
	repostTimeout = 30 * time.Second
	// maxOpenAttempts bounds gateway connection retries at startup
	maxOpenAttempts = 8
)

// Intents needed to see messages and their authors in guild channels
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Config holds bot configuration
type Config struct {
	Token string
}

// Bot connects the Discord gateway to the repost engine and the sticky commands
type Bot struct {
	session *discordgo.Session
	engine  *services.RepostEngine
	sticky  *sticky.Feature
}

// NewSession creates the Discord session with the intents the bot needs
func NewSession(config Config) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	return dg, nil
}

// New registers event handlers on session. The connection is opened
// separately by Open.
func New(session *discordgo.Session, engine *services.RepostEngine, stickyService *services.StickyService) *Bot {
	bot := &Bot{
		session: session,
		engine:  engine,
		sticky:  sticky.NewFeature(stickyService),
	}

	session.AddHandler(bot.handleReady)
	session.AddHandler(bot.handleGuildCreate)
	session.AddHandler(bot.handleMessageCreate)
	session.AddHandler(bot.handleCommands)

	return bot
}

// Session exposes the underlying discordgo session
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Open connects to the gateway, retrying with exponential backoff
func (b *Bot) Open(ctx context.Context) error {
	boff := backoff.Backoff{
		Min:    1 * time.Second,
		Max:    2 * time.Minute,
		Factor: 2,
		Jitter: true,
	}

	for {
		err := b.session.Open()
		if err == nil {
			return nil
		}
		if int(boff.Attempt())+1 >= maxOpenAttempts {
			return fmt.Errorf("error opening connection after %d attempts: %w", maxOpenAttempts, err)
		}

		delay := boff.Duration()
		log.WithFields(log.Fields{
			"attempt": int(boff.Attempt()),
			"delay":   delay,
			"error":   err,
		}).Warn("Failed to open Discord connection, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Close stops pending debounce timers and disconnects. Debounce state stays
// persisted for the next start.
func (b *Bot) Close() error {
	b.engine.Close()
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Discord bot is ready")
}

// handleGuildCreate deploys the commands to a guild as it becomes available
// and revives its debounce timers
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	logger := log.WithField("guild_id", g.ID)

	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, sticky.Commands()); err != nil {
		logger.WithError(err).Error("Failed to deploy commands")
	} else {
		logger.Info("Deployed commands")
	}

	ctx, cancel := context.WithTimeout(context.Background(), repostTimeout)
	defer cancel()
	if _, err := b.engine.Revive(ctx, g.ID); err != nil {
		logger.WithError(err).Error("Failed to revive sticky timers")
	}
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	channel, trigger, ok := messageTrigger(m)
	if !ok {
		return
	}
	if s.State != nil {
		if ch, err := s.State.Channel(channel.ID); err == nil {
			channel.Name = ch.Name
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), repostTimeout)
	defer cancel()

	status, err := b.engine.MaybeRepost(ctx, channel, trigger)
	if err != nil {
		log.WithFields(log.Fields{
			"channel_id": channel.ID,
			"message_id": trigger.ID,
			"status":     status.String(),
			"error":      err,
		}).Error("Failed to repost sticky")
	}
}

// messageTrigger extracts the repost trigger from a gateway message. Direct
// messages and messages without an author never trigger.
func messageTrigger(m *discordgo.MessageCreate) (entities.ChannelRef, *services.TriggerMessage, bool) {
	if m.Message == nil || m.GuildID == "" || m.Author == nil {
		return entities.ChannelRef{}, nil, false
	}
	channel := entities.ChannelRef{ID: m.ChannelID, GuildID: m.GuildID}
	trigger := &services.TriggerMessage{
		ID:          m.ID,
		AuthorID:    m.Author.ID,
		AuthorIsBot: m.Author.Bot,
		WebhookID:   m.WebhookID,
	}
	return channel, trigger, true
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	log.WithFields(log.Fields{
		"command":  name,
		"guild_id": i.GuildID,
		"user_id":  common.InteractionUserID(i),
	}).Info("Handle command")

	if b.sticky.Handles(name) {
		b.sticky.HandleCommand(s, i)
	}
}
