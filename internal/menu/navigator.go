package menu

import (
	"context"
	"strings"
	"time"
)

// Mode tells the transport whether more input is expected.
type Mode int

const (
	Continue Mode = iota
	Terminal
)

func (m Mode) String() string {
	if m == Terminal {
		return "terminal"
	}
	return "continue"
}

// Prefix is the wire tag the dial gateway expects before the response text.
func (m Mode) Prefix() string {
	if m == Terminal {
		return "END "
	}
	return "CON "
}

// SplitPath turns the gateway text into path tokens. Empty text is the empty
// path.
func SplitPath(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, Delimiter)
}

// Request is one navigation step.
type Request struct {
	SessionID   string
	PhoneNumber string
	Path        []string
	// Slots holds values captured on earlier turns. They take precedence
	// over values replayed from the path.
	Slots map[string]string
	Now   time.Time
}

// Response is the screen to present.
type Response struct {
	Mode       Mode
	Text       string
	Slots      map[string]string
	Submission *Submission
	// Depth is len(Path).
	Depth int
}

// Wire renders the response with its mode prefix.
func (r Response) Wire() string {
	return r.Mode.Prefix() + r.Text
}

// Navigator walks a Tree. It holds no per-session state and is safe for
// concurrent use.
type Navigator struct {
	tree      Tree
	directory Directory
	onError   func(op string, err error)
}

// NewNavigator returns a navigator over tree. directory may be nil, in which
// case lookups report that the service is unavailable.
func NewNavigator(tree Tree, directory Directory, onError func(op string, err error)) *Navigator {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Navigator{tree: tree, directory: directory, onError: onError}
}

func invalid(slots map[string]string, depth int) Response {
	return Response{Mode: Terminal, Text: invalidText, Slots: slots, Depth: depth}
}

// Navigate replays req.Path from the root. Every token but the last selects an
// already-seen screen; the screen reached after the final token is returned.
// An unknown choice, a blank input or a token past a terminal screen yields
// the invalid-selection terminal.
func (n *Navigator) Navigate(ctx context.Context, req Request) Response {
	slots := make(map[string]string, len(req.Slots))
	for k, v := range req.Slots {
		slots[k] = v
	}
	setSlot := func(k, v string) {
		if _, ok := slots[k]; !ok {
			slots[k] = v
		}
	}

	depth := len(req.Path)
	key := ""
	node, ok := n.tree[key]
	if !ok {
		return invalid(slots, depth)
	}

	for _, tok := range req.Path {
		switch node.kind {
		case kindChoice:
			opt, ok := node.option(strings.TrimSpace(tok))
			if !ok {
				return invalid(slots, depth)
			}
			if opt.Back {
				key = ""
				node = n.tree[key]
				continue
			}
			if node.Slot != "" {
				setSlot(node.Slot, opt.Label)
			}
			key = joinKey(key, opt.Key)
		case kindInput:
			if strings.TrimSpace(tok) == "" {
				return invalid(slots, depth)
			}
			setSlot(node.Slot, tok)
			key = joinKey(key, wildcard)
		default:
			return invalid(slots, depth)
		}

		if node, ok = n.tree[key]; !ok {
			return invalid(slots, depth)
		}
	}

	if node.kind != kindTerminal {
		return Response{Mode: Continue, Text: node.text(), Slots: slots, Depth: depth}
	}
	text, sub := node.render(&renderContext{
		ctx:       ctx,
		sessionID: req.SessionID,
		phone:     req.PhoneNumber,
		now:       req.Now,
		slots:     slots,
		directory: n.directory,
		onError:   n.onError,
	})
	return Response{Mode: Terminal, Text: text, Slots: slots, Submission: sub, Depth: depth}
}
