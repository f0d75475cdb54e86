// Package assistant runs one free-text turn: extract entities, classify the
// intent, pick a response, decide on escalation and persist the session.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lewisedginton/ward_desk/internal/entities"
	"github.com/lewisedginton/ward_desk/internal/intent"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/models"
	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

const (
	// DefaultAnswerThreshold must be exceeded by the top knowledge match for
	// its stored answer to be returned.
	DefaultAnswerThreshold = 0.5
	// LowConfidence escalates any intent scored below it.
	LowConfidence = 0.3
	// ComplaintConfidence escalates complaints scored below it.
	ComplaintConfidence = 0.7

	DefaultGenerationTimeout = 5 * time.Second
	DefaultHistoryTurns      = 5
	DefaultMaxTokens         = 200
	DefaultTemperature       = 0.7

	SystemPrompt = "You are a helpful assistant for VOO Ward services. Provide accurate, helpful information about bursaries, issue reporting, and community services. Keep responses concise and actionable."
)

// Next actions.
const (
	ActionCollectIDNumber        = "collect_id_number"
	ActionStartBursary           = "start_bursary_application"
	ActionCollectLocation        = "collect_location"
	ActionCreateIssueReport      = "create_issue_report"
	ActionCollectReference       = "collect_reference"
	ActionCheckApplicationStatus = "check_application_status"
	ActionEscalateToEmergency    = "escalate_to_emergency_services"
	ActionNotifyWardOffice       = "notify_ward_office"
)

// ErrMalformedTurn rejects a turn without a user id or message.
var ErrMalformedTurn = errors.New("user_id and message are required")

// Turn is one inbound chat message.
type Turn struct {
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Reply is the outcome of a turn. Entities holds only what this message
// contained; the session keeps the cumulative set.
type Reply struct {
	Response      string        `json:"response"`
	Intent        intent.Intent `json:"intent"`
	Confidence    float64       `json:"confidence"`
	Entities      entities.Set  `json:"entities"`
	NextActions   []string      `json:"next_actions"`
	RequiresHuman bool          `json:"requires_human"`
	Language      string        `json:"language"`
}

// EscalationNotice is appended by Render when a person must follow up.
const EscalationNotice = "A ward official has been notified and will follow up with you."

// Render is the reply as plain text for chat transports.
func (r Reply) Render() string {
	if r.RequiresHuman {
		return r.Response + "\n\n" + EscalationNotice
	}
	return r.Response
}

// Knowledge is the retrieval collaborator.
type Knowledge interface {
	Search(query string) []knowledge_base.Result
	Answer(question string) (string, bool)
}

// Classifier labels a message.
type Classifier interface {
	Classify(text string) (intent.Intent, float64)
}

// Config wires an Assistant. A nil Store runs statelessly, a nil Classifier
// uses the default rules, and a nil Generator disables the fallback.
type Config struct {
	Store      *session_store.Store
	Knowledge  Knowledge
	Classifier Classifier
	Generator  models.Generator
	Templates  Templates

	AnswerThreshold   float64
	GenerationTimeout time.Duration
	HistoryTurns      int
	MaxTokens         int
	Temperature       float64

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Assistant is safe for concurrent use across sessions.
type Assistant struct {
	cfg Config
	log logger.Logger
}

// New creates an Assistant.
func New(cfg Config) *Assistant {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Store == nil {
		cfg.Store = session_store.NewStore(nil, session_store.Config{Channel: session_store.ChannelChat, Logger: cfg.Logger})
	}
	if cfg.Classifier == nil {
		cfg.Classifier = intent.NewClassifier(nil)
	}
	if cfg.Templates == nil {
		cfg.Templates = DefaultTemplates
	}
	if cfg.AnswerThreshold <= 0 {
		cfg.AnswerThreshold = DefaultAnswerThreshold
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &Assistant{
		cfg: cfg,
		log: cfg.Logger.WithFields(logger.ChannelField(string(session_store.ChannelChat))),
	}
}

// Handle processes one turn. Only a malformed turn is an error.
func (a *Assistant) Handle(ctx context.Context, t Turn) (Reply, error) {
	start := time.Now()
	msg := strings.TrimSpace(t.Message)
	if strings.TrimSpace(t.UserID) == "" || msg == "" {
		a.log.Debug("Rejected chat turn", logger.BoolField("has_user_id", t.UserID != ""))
		return Reply{}, ErrMalformedTurn
	}
	log := a.log.WithFields(logger.SessionIDField(t.UserID))

	sess := a.cfg.Store.Load(ctx, t.UserID)
	now := a.cfg.Store.Now()
	// The language is chosen when the session starts and kept until it expires.
	if len(sess.History) == 0 && IsSupportedLanguage(t.Language) {
		sess.Language = strings.ToLower(strings.TrimSpace(t.Language))
	} else if !IsSupportedLanguage(sess.Language) {
		sess.Language = session_store.DefaultLanguage
	}
	if t.PhoneNumber != "" {
		sess.PhoneNumber = t.PhoneNumber
	}

	prior := sess.RecentHistory(a.cfg.HistoryTurns)
	sess.AppendTurn(session_store.Turn{Role: session_store.RoleUser, Text: msg, Timestamp: now})

	found := entities.Extract(msg)
	if sess.Entities == nil {
		sess.Entities = entities.Set{}
	}
	sess.Entities.Merge(found)

	in, confidence := a.cfg.Classifier.Classify(msg)
	sess.CurrentIntent = in

	text := a.respond(ctx, log, in, msg, sess.Language, prior)
	reply := Reply{
		Response:      text,
		Intent:        in,
		Confidence:    confidence,
		Entities:      found,
		NextActions:   NextActions(in, sess.Entities),
		RequiresHuman: RequiresHuman(in, confidence),
		Language:      sess.Language,
	}

	sess.AppendTurn(session_store.Turn{
		Role:       session_store.RoleAssistant,
		Text:       text,
		Timestamp:  now,
		Intent:     in,
		Confidence: confidence,
	})
	a.cfg.Store.Save(ctx, sess)

	outcome := "answered"
	if reply.RequiresHuman {
		outcome = "escalated"
	}
	log.Debug("Chat turn handled",
		logger.StringField("intent", string(in)),
		logger.Float64Field("confidence", confidence),
		logger.BoolField("requires_human", reply.RequiresHuman))
	a.cfg.Metrics.ObserveIntent(string(in), reply.RequiresHuman)
	a.cfg.Metrics.ObserveTurn(string(session_store.ChannelChat), outcome, time.Since(start))
	return reply, nil
}

func (a *Assistant) respond(ctx context.Context, log logger.Logger, in intent.Intent, msg, lang string, prior []session_store.Turn) string {
	switch in {
	case intent.InformationRequest:
		if answer, ok := a.retrieve(msg); ok {
			return answer
		}
		if text, ok := a.generate(ctx, log, msg, prior); ok {
			return text
		}
	case intent.Unknown:
		if text, ok := a.generate(ctx, log, msg, prior); ok {
			return text
		}
	}
	return a.cfg.Templates.Render(in, lang)
}

func (a *Assistant) retrieve(msg string) (string, bool) {
	if a.cfg.Knowledge == nil {
		return "", false
	}
	results := a.cfg.Knowledge.Search(msg)
	if len(results) == 0 || results[0].Score <= a.cfg.AnswerThreshold {
		return "", false
	}
	return a.cfg.Knowledge.Answer(results[0].Question)
}

// generate asks the generator for a completion, bounded by GenerationTimeout.
// Failures are logged and reported as a miss.
func (a *Assistant) generate(ctx context.Context, log logger.Logger, msg string, prior []session_store.Turn) (string, bool) {
	g := a.cfg.Generator
	if g == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout)
	defer cancel()

	history := make([]models.Message, 0, len(prior))
	for _, t := range prior {
		role := models.RoleUser
		if t.Role == session_store.RoleAssistant {
			role = models.RoleAssistant
		}
		history = append(history, models.Message{Role: role, Text: t.Text})
	}

	type completion struct {
		text string
		err  error
	}
	// Buffered so a generator that ignores ctx can still finish and exit.
	done := make(chan completion, 1)
	go func() {
		text, err := g.Generate(ctx, models.Request{
			System:      SystemPrompt,
			History:     history,
			Prompt:      msg,
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
		})
		done <- completion{text: text, err: err}
	}()

	var (
		text string
		err  error
	)
	select {
	case c := <-done:
		text, err = c.text, c.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = models.ErrEmptyCompletion
		}
	}
	if err != nil {
		log.Warn("Generation failed, using template",
			logger.StringField("provider", g.Provider()), logger.ErrorField(err))
		a.cfg.Metrics.GenerationFailed(g.Provider())
		return "", false
	}
	return text, true
}

// NextActions derives the follow-up steps for in given the session's
// entities.
func NextActions(in intent.Intent, found entities.Set) []string {
	actions := []string{}
	switch in {
	case intent.BursaryApplication:
		if found.Has(entities.IDNumber) {
			actions = append(actions, ActionStartBursary)
		} else {
			actions = append(actions, ActionCollectIDNumber)
		}
	case intent.IssueReporting:
		if !found.Has(entities.AreaCode) {
			actions = append(actions, ActionCollectLocation)
		}
		actions = append(actions, ActionCreateIssueReport)
	case intent.StatusCheck:
		if found.Has(entities.IDNumber) {
			actions = append(actions, ActionCheckApplicationStatus)
		} else {
			actions = append(actions, ActionCollectReference)
		}
	case intent.Emergency:
		actions = append(actions, ActionEscalateToEmergency, ActionNotifyWardOffice)
	}
	return actions
}

// RequiresHuman reports whether a reply must be handed to a person.
func RequiresHuman(in intent.Intent, confidence float64) bool {
	switch {
	case confidence < LowConfidence:
		return true
	case in == intent.Emergency:
		return true
	case in == intent.Complaint && confidence < ComplaintConfidence:
		return true
	}
	return false
}

// Reset forgets the session of userID.
func (a *Assistant) Reset(ctx context.Context, userID string) error {
	return a.cfg.Store.Delete(ctx, userID)
}

// ContextView summarises a stored chat session.
type ContextView struct {
	UserID           string        `json:"user_id"`
	CurrentIntent    intent.Intent `json:"current_intent,omitempty"`
	Language         string        `json:"language"`
	SessionDuration  string        `json:"session_duration"`
	InteractionCount int           `json:"interaction_count"`
	Entities         entities.Set  `json:"entities"`
}

// Inspect returns the live session for userID, or session_store.ErrNotFound.
func (a *Assistant) Inspect(ctx context.Context, userID string) (ContextView, error) {
	sess, err := a.cfg.Store.Get(ctx, userID)
	if err != nil {
		return ContextView{}, err
	}
	return ContextView{
		UserID:           sess.SessionID,
		CurrentIntent:    sess.CurrentIntent,
		Language:         sess.Language,
		SessionDuration:  sess.Duration().String(),
		InteractionCount: len(sess.History),
		Entities:         sess.Entities,
	}, nil
}
