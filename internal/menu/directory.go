package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by a Directory when a lookup has no match.
var ErrNotFound = errors.New("record not found")

// Registration is a voter registration as seen by a status lookup.
type Registration struct {
	Reference   string
	NationalID  string
	FullName    string
	Status      string
	SubmittedAt time.Time
}

// Issue is a reported issue as seen by a status lookup.
type Issue struct {
	Ticket      string
	Category    string
	Description string
	Status      string
	ReportedAt  time.Time
}

// Directory answers the status lookups offered by the menu.
type Directory interface {
	RegistrationByNationalID(ctx context.Context, nationalID string) (Registration, error)
	IssuesByPhone(ctx context.Context, phone string, limit int) ([]Issue, error)
	IssueByTicket(ctx context.Context, ticket string) (Issue, error)
}

// SubmissionKind names what a completed flow produced.
type SubmissionKind string

const (
	SubmissionRegistration SubmissionKind = "registration"
	SubmissionIssueReport  SubmissionKind = "issue_report"
)

// Submission is the record of a completed registration or issue report.
type Submission struct {
	Kind        SubmissionKind
	Reference   string
	SessionID   string
	PhoneNumber string
	NationalID  string
	FullName    string
	Category    string
	Description string
	CreatedAt   time.Time
}

// Interaction is one menu turn for the audit log.
type Interaction struct {
	SessionID   string
	PhoneNumber string
	ServiceCode string
	Text        string
	Mode        Mode
	Response    string
	At          time.Time
}

// Recorder stores submissions and the interaction log.
type Recorder interface {
	RecordSubmission(ctx context.Context, s Submission) error
	RecordInteraction(ctx context.Context, i Interaction) error
}

// myIssuesLimit caps the issues listed on one screen.
const myIssuesLimit = 3

// sessionPrefix is the first n characters of a session id.
func sessionPrefix(sessionID string, n int) string {
	r := []rune(sessionID)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// TicketCode derives an issue ticket from the date and session id. Two sessions
// sharing the first four id characters on the same day get the same code.
func TicketCode(sessionID string, now time.Time) string {
	return fmt.Sprintf("ISS%s-%s", now.Format("20060102"), sessionPrefix(sessionID, 4))
}

// RegistrationReference derives a registration reference the same way.
func RegistrationReference(sessionID string, now time.Time) string {
	return fmt.Sprintf("REG%s-%s", now.Format("20060102"), sessionPrefix(sessionID, 4))
}

func renderRegistration(rc *renderContext) (string, *Submission) {
	ref := RegistrationReference(rc.sessionID, rc.now)
	text := fmt.Sprintf("Registration Submitted!\nRef: %s\nName: %s\nID: %s\n\nYou will receive SMS confirmation within 24 hours.",
		ref, rc.slots[SlotFullName], rc.slots[SlotNationalID])
	return text, &Submission{
		Kind:        SubmissionRegistration,
		Reference:   ref,
		SessionID:   rc.sessionID,
		PhoneNumber: rc.phone,
		NationalID:  rc.slots[SlotNationalID],
		FullName:    rc.slots[SlotFullName],
		CreatedAt:   rc.now,
	}
}

func renderIssueReport(rc *renderContext) (string, *Submission) {
	ticket := TicketCode(rc.sessionID, rc.now)
	text := fmt.Sprintf("Issue Reported!\nTicket: %s\nCategory: %s\n\nYou will receive SMS updates.\nTrack via dial *120*8001#",
		ticket, rc.slots[SlotCategory])
	return text, &Submission{
		Kind:        SubmissionIssueReport,
		Reference:   ticket,
		SessionID:   rc.sessionID,
		PhoneNumber: rc.phone,
		Category:    rc.slots[SlotCategory],
		Description: rc.slots[SlotDescription],
		CreatedAt:   rc.now,
	}
}

func renderRegistrationStatus(rc *renderContext) (string, *Submission) {
	id := rc.slots[SlotNationalID]
	if rc.directory == nil {
		return unavailable, nil
	}
	reg, err := rc.directory.RegistrationByNationalID(rc.ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("No registration found for ID %s.", id), nil
	case err != nil:
		rc.onError("registration_lookup", err)
		return unavailable, nil
	}
	return fmt.Sprintf("Registration Status:\nName: %s\nID: %s\nRef: %s\nStatus: %s",
		reg.FullName, reg.NationalID, reg.Reference, reg.Status), nil
}

func renderMyIssues(rc *renderContext) (string, *Submission) {
	if rc.directory == nil || rc.phone == "" {
		return unavailable, nil
	}
	issues, err := rc.directory.IssuesByPhone(rc.ctx, rc.phone, myIssuesLimit)
	if err != nil && !errors.Is(err, ErrNotFound) {
		rc.onError("issues_by_phone", err)
		return unavailable, nil
	}
	if len(issues) == 0 {
		return "You have no reported issues.", nil
	}
	var b strings.Builder
	b.WriteString("Your Issues:")
	for i, is := range issues {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, is.Ticket, is.Status)
	}
	return b.String(), nil
}

func renderTicket(rc *renderContext) (string, *Submission) {
	ticket := strings.ToUpper(strings.TrimSpace(rc.slots[SlotTicket]))
	if rc.directory == nil {
		return unavailable, nil
	}
	is, err := rc.directory.IssueByTicket(rc.ctx, ticket)
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Ticket %s not found.", ticket), nil
	case err != nil:
		rc.onError("issue_by_ticket", err)
		return unavailable, nil
	}
	return fmt.Sprintf("Ticket: %s\nCategory: %s\nStatus: %s\nReported: %s",
		is.Ticket, is.Category, is.Status, is.ReportedAt.Format("2006-01-02")), nil
}
