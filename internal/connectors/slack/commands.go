// Package slack routes Slack direct messages and mentions to the ward
// assistant.
package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// CommandHandler handles a specific slash command
type CommandHandler func(ctx context.Context, cmd slack.SlashCommand) (map[string]interface{}, error)

// CommandRegistry manages slash command handlers
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
	}
}

// Register adds a command handler to the registry
func (r *CommandRegistry) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// Handle processes a slash command event
func (r *CommandRegistry) Handle(ctx context.Context, cmd slack.SlashCommand) (map[string]interface{}, error) {
	handler, exists := r.handlers[cmd.Command]
	if !exists {
		return map[string]interface{}{
			"text": fmt.Sprintf("Unknown command: %s", cmd.Command),
		}, nil
	}
	return handler(ctx, cmd)
}

// handleNewCommand forgets the caller's conversation in this channel.
func (c *Connector) handleNewCommand(ctx context.Context, cmd slack.SlashCommand) (map[string]interface{}, error) {
	if err := c.assistant.Reset(ctx, SessionID(cmd.UserID, cmd.ChannelID)); err != nil {
		return map[string]interface{}{
			"text": "Failed to start a new conversation.",
		}, err
	}
	return map[string]interface{}{
		"text": "Started a new conversation!",
	}, nil
}

func (c *Connector) handleHelpCommand(_ context.Context, _ slack.SlashCommand) (map[string]interface{}, error) {
	helpText := `*Available Commands:*

• */new* - Start a new conversation
• */help* - Show this help message

Ask me about bursaries, reporting an issue, application status or ward office contacts.`

	return map[string]interface{}{
		"text": helpText,
	}, nil
}

// setupCommands initialises the command registry with all available commands
func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	c.commands.Register("/new", c.handleNewCommand)
	c.commands.Register("/help", c.handleHelpCommand)
}

// handleSlashCommand processes incoming slash command events
func (c *Connector) handleSlashCommand(ctx context.Context, envelope socketmode.Event) {
	cmd, ok := envelope.Data.(slack.SlashCommand)
	if !ok {
		c.logger.Warn("Failed to parse slash command data", logger.StringField("data", fmt.Sprintf("%+v", envelope.Data)))
		c.socketMode.Ack(*envelope.Request)
		return
	}

	c.logger.Info("Received slash command",
		logger.StringField("command", cmd.Command),
		logger.StringField("user_id", cmd.UserID),
		logger.StringField("channel_id", cmd.ChannelID))

	response, err := c.commands.Handle(ctx, cmd)
	if err != nil {
		c.logger.Error("Error handling command",
			logger.StringField("command", cmd.Command),
			logger.ErrorField(err))
		response = map[string]interface{}{
			"text": "An error occurred while processing your command.",
		}
	}

	c.socketMode.Ack(*envelope.Request, response)
}
