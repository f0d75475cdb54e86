package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/ward_desk/internal/menu"
)

// MenuHandler answers one dial-menu callback.
type MenuHandler interface {
	Handle(ctx context.Context, t menu.Turn) (menu.Response, error)
}

// MenuCommand simulates a handset dialing the menu.
func MenuCommand() *cli.Command {
	return &cli.Command{
		Name:  "menu",
		Usage: "Dial the menu interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "phone", Value: "+27000000000", Usage: "Caller phone number"},
			&cli.StringFlag{Name: "service-code", Value: "*120*8001#", Usage: "Dialed service code"},
		},
		Action: func(ctx *cli.Context) error {
			s, _, err := newServer(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return runMenu(ctx.Context, s.Menu(), ctx.App.Reader, ctx.App.Writer, menu.Turn{
				SessionID:   newDialSessionID(),
				ServiceCode: ctx.String("service-code"),
				PhoneNumber: ctx.String("phone"),
			})
		},
	}
}

// newDialSessionID returns a bare uuid. Ticket and reference codes take the
// first four characters of the session id, so it must start with random text.
func newDialSessionID() string {
	return uuid.NewString()
}

// runMenu replays the gateway protocol: every reply resends the whole path
// joined by '*', until the menu ends or input runs out.
func runMenu(ctx context.Context, h MenuHandler, in io.Reader, out io.Writer, base menu.Turn) error {
	scanner := bufio.NewScanner(in)
	var path []string
	for {
		turn := base
		turn.Text = strings.Join(path, "*")
		resp, err := h.Handle(ctx, turn)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp.Text)
		if resp.Mode == menu.Terminal {
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		path = append(path, strings.TrimSpace(scanner.Text()))
	}
}
