package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"
)

// CommandHandler handles a specific Telegram bot command
type CommandHandler func(ctx context.Context, sessionID string, msg *models.Message) (string, error)

// CommandRegistry manages bot command handlers
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

// Handle runs the handler for the command in msg. Commands addressed as
// /cmd@botname match /cmd.
func (r *CommandRegistry) Handle(ctx context.Context, sessionID string, msg *models.Message) (string, error) {
	if msg == nil || !r.IsCommand(msg.Text) {
		return "", nil
	}

	command, _, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")
	command, _, _ = strings.Cut(command, "@")

	handler, exists := r.handlers[command]
	if !exists {
		return "Unknown command: " + command, nil
	}
	return handler(ctx, sessionID, msg)
}

// IsCommand checks if a message is a command
func (r *CommandRegistry) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

const helpText = `I can help with VOO Ward services:
- Bursary applications
- Reporting issues (water, electricity, roads, refuse)
- Checking application status
- Ward office contact details

Commands:
/new - Start a new conversation
/help - Show this help message`

func (c *Connector) handleNewCommand(ctx context.Context, sessionID string, _ *models.Message) (string, error) {
	if err := c.assistant.Reset(ctx, sessionID); err != nil {
		return "", err
	}
	return "Started a new conversation. How can I help you?", nil
}

func handleHelpCommand(context.Context, string, *models.Message) (string, error) {
	return helpText, nil
}

// setupCommands initializes the command registry with all available commands
func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	c.commands.Register("/start", handleHelpCommand)
	c.commands.Register("/help", handleHelpCommand)
	c.commands.Register("/new", c.handleNewCommand)
}
