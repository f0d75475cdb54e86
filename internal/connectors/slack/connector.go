package slack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const errorReply = "Sorry, I encountered an error processing your message."

// Assistant is the conversation backend.
type Assistant interface {
	Handle(ctx context.Context, t assistant.Turn) (assistant.Reply, error)
	Reset(ctx context.Context, userID string) error
}

// Poster sends a message to a channel.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Connector represents the Slack Socket Mode connector
type Connector struct {
	client     *slack.Client
	poster     Poster
	socketMode *socketmode.Client
	assistant  Assistant
	commands   *CommandRegistry
	logger     logger.Logger
}

// Config holds configuration for the Slack connector
type Config struct {
	BotToken string // xoxb-*
	AppToken string // xapp-*
	Debug    bool
}

// NewConnector creates a Slack connector backed by a.
func NewConnector(config Config, a Assistant, log logger.Logger) (*Connector, error) {
	if !strings.HasPrefix(config.BotToken, "xoxb-") {
		return nil, fmt.Errorf("invalid bot token format, expected xoxb-*")
	}
	if !strings.HasPrefix(config.AppToken, "xapp-") {
		return nil, fmt.Errorf("invalid app token format, expected xapp-*")
	}

	client := slack.New(
		config.BotToken,
		slack.OptionAppLevelToken(config.AppToken),
		slack.OptionDebug(config.Debug),
	)
	c, err := newConnector(client, a, log)
	if err != nil {
		return nil, err
	}
	c.client = client
	c.socketMode = socketmode.New(client, socketmode.OptionDebug(config.Debug))
	return c, nil
}

func newConnector(poster Poster, a Assistant, log logger.Logger) (*Connector, error) {
	if a == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Connector{
		poster:    poster,
		assistant: a,
		logger:    log.WithFields(logger.ChannelField("slack")),
	}
	c.setupCommands()
	return c, nil
}

// Start runs the Socket Mode connection until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Slack Socket Mode connector")

	go func() {
		for envelope := range c.socketMode.Events {
			switch envelope.Type {
			case socketmode.EventTypeConnecting:
				c.logger.Info("Connecting to Slack with Socket Mode")

			case socketmode.EventTypeConnectionError:
				c.logger.Warn("Slack connection failed", logger.StringField("data", fmt.Sprintf("%v", envelope.Data)))

			case socketmode.EventTypeConnected:
				c.logger.Info("Connected to Slack with Socket Mode")

			case socketmode.EventTypeHello:

			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					c.logger.Debug("Ignored event", logger.StringField("type", string(envelope.Type)))
					continue
				}
				c.socketMode.Ack(*envelope.Request)

				if err := c.handleEvent(ctx, eventsAPIEvent); err != nil {
					c.logger.Error("Failed to handle event", logger.ErrorField(err))
				}

			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(ctx, envelope)

			case socketmode.EventTypeInteractive:
				c.socketMode.Ack(*envelope.Request)

			default:
				c.logger.Debug("Unsupported event type received", logger.StringField("type", string(envelope.Type)))
			}
		}
	}()

	return c.socketMode.RunContext(ctx)
}

// handleEvent routes direct messages and mentions to the assistant.
func (c *Connector) handleEvent(ctx context.Context, event slackevents.EventsAPIEvent) error {
	if event.Type != slackevents.CallbackEvent {
		return nil
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || ev.SubType == "bot_message" {
			return nil
		}
		// DM channel ids start with D.
		if !strings.HasPrefix(ev.Channel, "D") {
			return nil
		}
		return c.respond(ctx, ev.User, ev.Channel, ev.Text)
	case *slackevents.AppMentionEvent:
		return c.respond(ctx, ev.User, ev.Channel, removeBotMention(ev.Text))
	}
	return nil
}

// SessionID keys the assistant session for a Slack user in a channel.
func SessionID(userID, channelID string) string {
	return fmt.Sprintf("slack_%s_%s", userID, channelID)
}

func (c *Connector) respond(ctx context.Context, userID, channelID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sessionID := SessionID(userID, channelID)
	log := c.logger.WithFields(logger.SessionIDField(sessionID))
	log.Debug("Processing message")

	out := errorReply
	reply, err := c.assistant.Handle(ctx, assistant.Turn{UserID: sessionID, Message: text})
	if err != nil {
		log.Error("Assistant failed", logger.ErrorField(err))
	} else {
		out = reply.Render()
	}

	if _, _, err := c.poster.PostMessageContext(ctx, channelID, slack.MsgOptionText(out, false)); err != nil {
		return fmt.Errorf("post message to %s: %w", channelID, err)
	}
	return nil
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// removeBotMention strips user mentions from text.
func removeBotMention(text string) string {
	return strings.Join(strings.Fields(mentionPattern.ReplaceAllString(text, " ")), " ")
}

// GetBotInfo returns information about the bot
func (c *Connector) GetBotInfo() (*slack.Bot, error) {
	auth, err := c.client.AuthTest()
	if err != nil {
		return nil, err
	}
	return c.client.GetBotInfo(slack.GetBotInfoParameters{Bot: auth.BotID})
}
