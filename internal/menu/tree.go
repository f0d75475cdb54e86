// Package menu implements the dial-code menu channel: a fixed tree of screens
// navigated by the full path of choices a caller has entered so far.
package menu

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Delimiter separates path tokens in the caller-supplied text.
const Delimiter = "*"

// wildcard marks a free-form input position in a tree key.
const wildcard = "_"

type kind int

const (
	kindChoice kind = iota
	kindInput
	kindTerminal
)

// Option is one numbered entry on a choice screen. A Back option returns to
// the root menu.
type Option struct {
	Key   string
	Label string
	Back  bool
}

// renderContext is what a terminal screen can read.
type renderContext struct {
	ctx       context.Context
	sessionID string
	phone     string
	now       time.Time
	slots     map[string]string
	directory Directory
	onError   func(op string, err error)
}

type renderFunc func(rc *renderContext) (string, *Submission)

// Node is one screen. Choice screens list Options and may record the chosen
// label under Slot; input screens record the raw token under Slot; terminal
// screens end the session with the text produced by render.
type Node struct {
	kind    kind
	Title   string
	Options []Option
	Slot    string
	render  renderFunc
}

func (n Node) option(key string) (Option, bool) {
	for _, o := range n.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

func (n Node) text() string {
	if n.kind != kindChoice {
		return n.Title
	}
	var b strings.Builder
	b.WriteString(n.Title)
	for _, o := range n.Options {
		fmt.Fprintf(&b, "\n%s. %s", o.Key, o.Label)
	}
	return b.String()
}

func choice(title, slot string, opts ...Option) Node {
	return Node{kind: kindChoice, Title: title, Slot: slot, Options: opts}
}

func input(prompt, slot string) Node {
	return Node{kind: kindInput, Title: prompt, Slot: slot}
}

func terminal(render renderFunc) Node {
	return Node{kind: kindTerminal, render: render}
}

func static(text string) Node {
	return terminal(func(*renderContext) (string, *Submission) { return text, nil })
}

// Tree maps path patterns to screens. The root is keyed by "" and each key
// joins the tokens leading to a screen with Delimiter, with free-form input
// positions written as "_".
type Tree map[string]Node

func joinKey(prefix, token string) string {
	if prefix == "" {
		return token
	}
	return prefix + Delimiter + token
}

// Slot names.
const (
	SlotNationalID  = "national_id"
	SlotFullName    = "full_name"
	SlotCategory    = "category"
	SlotDescription = "description"
	SlotTicket      = "ticket"
)

// IssueCategories are the selectable issue categories, in menu order.
var IssueCategories = []string{"Water", "Roads", "Electricity", "Security", "Health", "Waste", "Other"}

type announcement struct {
	Label  string
	Detail string
}

var announcements = []announcement{
	{"Water Maintenance - 25th Nov", "Water Maintenance\nSupply will be interrupted on 25th Nov from 8AM to 4PM for pipe repairs. Store water in advance."},
	{"Town Hall Meeting - 30th Nov", "Town Hall Meeting\n30th Nov at 10AM, Ward Office hall. Agenda: budget priorities and bursary allocations."},
	{"Road Closure Alert", "Road Closure Alert\nMain Street is closed between the clinic and the market for resurfacing. Use the bypass."},
}

const (
	backToMain = "Back to Main Menu"
	back       = "Back"

	contactText = "Contact Information:\nWard Office: 021-XXX-XXXX\nEmail: ward@voo.gov.za\nHours: Mon-Fri, 8AM-4PM\n\nEmergency: 10111"
	exitText    = "Thank you for using VOO Ward Services!"
	invalidText = "Invalid selection. Please try again."
	unavailable = "This service is unavailable right now. Please try again later."
)

// DefaultTree is the ward service menu.
func DefaultTree() Tree {
	t := Tree{
		"": choice("Welcome to VOO Ward Services", "",
			Option{Key: "1", Label: "Register as Voter"},
			Option{Key: "2", Label: "Report an Issue"},
			Option{Key: "3", Label: "Check Issue Status"},
			Option{Key: "4", Label: "My Registration"},
			Option{Key: "5", Label: "Announcements"},
			Option{Key: "6", Label: "Contact Us"},
			Option{Key: "0", Label: "Exit"},
		),
		"0": static(exitText),

		"1": choice("Voter Registration", "",
			Option{Key: "1", Label: "Start New Registration"},
			Option{Key: "2", Label: "Check Registration Status"},
			Option{Key: "0", Label: backToMain, Back: true},
		),
		"1*1":     input("Enter your National ID Number:", SlotNationalID),
		"1*1*_":   input("Enter your Full Name:", SlotFullName),
		"1*1*_*_": terminal(renderRegistration),
		"1*2":     input("Enter your National ID to check status:", SlotNationalID),
		"1*2*_":   terminal(renderRegistrationStatus),

		"3": choice("Check Issue Status:", "",
			Option{Key: "1", Label: "My Issues (by phone)"},
			Option{Key: "2", Label: "Specific Ticket Number"},
			Option{Key: "0", Label: back, Back: true},
		),
		"3*1":   terminal(renderMyIssues),
		"3*2":   input("Enter Ticket Number:", SlotTicket),
		"3*2*_": terminal(renderTicket),

		"4":   input("Enter your National ID:", SlotNationalID),
		"4*_": terminal(renderRegistrationStatus),

		"6": static(contactText),
	}

	categories := make([]Option, 0, len(IssueCategories)+1)
	for i, c := range IssueCategories {
		key := fmt.Sprint(i + 1)
		categories = append(categories, Option{Key: key, Label: c})
		t["2*"+key] = input("Describe the issue (keep it brief):", SlotDescription)
		t["2*"+key+"*_"] = terminal(renderIssueReport)
	}
	t["2"] = choice("Select Issue Category:", SlotCategory, append(categories, Option{Key: "0", Label: back, Back: true})...)

	news := make([]Option, 0, len(announcements)+1)
	for i, a := range announcements {
		key := fmt.Sprint(i + 1)
		news = append(news, Option{Key: key, Label: a.Label})
		t["5*"+key] = static(a.Detail)
	}
	t["5"] = choice("Latest Announcements:", "", append(news, Option{Key: "0", Label: back, Back: true})...)

	return t
}
