package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/ward_desk/internal/assistant"
)

// ChatAssistant is the part of the orchestrator the REPL drives.
type ChatAssistant interface {
	Handle(ctx context.Context, t assistant.Turn) (assistant.Reply, error)
	Reset(ctx context.Context, userID string) error
}

// ChatCommand opens an interactive chat session on the terminal.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the assistant from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Value: "cli-user", Usage: "Session id to chat as"},
			&cli.StringFlag{Name: "language", Usage: "Language code (en, af, zu, xh)"},
			&cli.StringFlag{Name: "phone", Usage: "Phone number attached to the session"},
		},
		Action: func(ctx *cli.Context) error {
			s, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return runChat(ctx.Context, s.Assistant(), ctx.App.Reader, ctx.App.Writer, assistant.Turn{
				UserID:      ctx.String("user"),
				Language:    ctx.String("language"),
				PhoneNumber: ctx.String("phone"),
			})
		},
	}
}

// runChat reads one message per line until EOF or /quit. /reset forgets the
// session.
func runChat(ctx context.Context, a ChatAssistant, in io.Reader, out io.Writer, base assistant.Turn) error {
	fmt.Fprintln(out, "Type a message, /reset to start over, /quit to leave.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := a.Reset(ctx, base.UserID); err != nil {
				return fmt.Errorf("failed to reset session: %w", err)
			}
			fmt.Fprintln(out, "Session cleared.")
			continue
		}

		turn := base
		turn.Message = line
		reply, err := a.Handle(ctx, turn)
		if errors.Is(err, assistant.ErrMalformedTurn) {
			fmt.Fprintln(out, err)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Render())
		fmt.Fprintf(out, "  [%s %.2f", reply.Intent, reply.Confidence)
		if len(reply.NextActions) > 0 {
			fmt.Fprintf(out, " next: %s", strings.Join(reply.NextActions, ", "))
		}
		fmt.Fprintln(out, "]")
	}
}
