// Package telegram routes Telegram chat messages to the ward assistant.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

const errorReply = "Sorry, I encountered an error processing your message."

// Assistant is the conversation backend.
type Assistant interface {
	Handle(ctx context.Context, t assistant.Turn) (assistant.Reply, error)
	Reset(ctx context.Context, userID string) error
}

// Connector represents the Telegram connector
type Connector struct {
	bot       *bot.Bot
	assistant Assistant
	commands  *CommandRegistry
	logger    logger.Logger
}

// Config holds configuration for the Telegram connector
type Config struct {
	BotToken string // Bot token from @BotFather
	Debug    bool
}

// NewConnector creates a Telegram connector backed by a.
func NewConnector(config Config, a Assistant, log logger.Logger) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	c, err := newConnector(a, log)
	if err != nil {
		return nil, err
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handleUpdate),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	c.bot = b
	c.logger.Info("Telegram bot initialized successfully")
	return c, nil
}

func newConnector(a Assistant, log logger.Logger) (*Connector, error) {
	if a == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Connector{
		assistant: a,
		logger:    log.WithFields(logger.ChannelField("telegram")),
	}
	c.setupCommands()
	return c, nil
}

// Start polls for updates until ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Telegram bot polling")
	c.bot.Start(ctx)
	return nil
}

// SessionID keys the assistant session for a Telegram user in a chat.
func SessionID(userID, chatID int64) string {
	return fmt.Sprintf("telegram_%d_%d", userID, chatID)
}

func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	text, ok := c.reply(ctx, update.Message)
	if !ok {
		return
	}
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Error sending message to Telegram", logger.ErrorField(err))
	}
}

// reply computes the answer to msg. It reports false for updates that must
// be ignored.
func (c *Connector) reply(ctx context.Context, msg *models.Message) (string, bool) {
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return "", false
	}
	if msg.From == nil || msg.From.IsBot {
		return "", false
	}

	sessionID := SessionID(msg.From.ID, msg.Chat.ID)
	log := c.logger.WithFields(logger.SessionIDField(sessionID))

	if c.commands.IsCommand(msg.Text) {
		text, err := c.commands.Handle(ctx, sessionID, msg)
		if err != nil {
			log.Error("Error handling command", logger.StringField("command", msg.Text), logger.ErrorField(err))
			return "An error occurred while processing your command.", true
		}
		return text, text != ""
	}

	log.Debug("Processing message", logger.StringField("username", msg.From.Username))
	resp, err := c.assistant.Handle(ctx, assistant.Turn{
		UserID:   sessionID,
		Message:  msg.Text,
		Language: msg.From.LanguageCode,
	})
	if err != nil {
		log.Error("Assistant failed", logger.ErrorField(err))
		return errorReply, true
	}
	return resp.Render(), true
}

// GetBotInfo returns information about the bot
func (c *Connector) GetBotInfo(ctx context.Context) (*models.User, error) {
	return c.bot.GetMe(ctx)
}
