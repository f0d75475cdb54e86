package menu

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

// ErrMalformedTurn rejects a turn without a session id.
var ErrMalformedTurn = errors.New("session id is required")

// Turn is one gateway callback.
type Turn struct {
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

// Service handles menu turns: load the session, navigate, save, record.
type Service struct {
	navigator *Navigator
	store     *session_store.Store
	recorder  Recorder
	log       logger.Logger
	metrics   *metrics.Metrics
}

// ServiceConfig wires a Service. A nil Store keeps no state between turns,
// which still works because every turn carries the full path. A nil Tree
// selects DefaultTree.
type ServiceConfig struct {
	Tree      Tree
	Store     *session_store.Store
	Directory Directory
	Recorder  Recorder
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

// NewService creates a menu service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Tree == nil {
		cfg.Tree = DefaultTree()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Store == nil {
		cfg.Store = session_store.NewStore(nil, session_store.Config{Channel: session_store.ChannelMenu, Logger: cfg.Logger})
	}
	log := cfg.Logger.WithFields(logger.ChannelField(string(session_store.ChannelMenu)))
	onError := func(op string, err error) {
		log.Warn("Menu lookup failed", logger.StringField("operation", op), logger.ErrorField(err))
	}
	return &Service{
		navigator: NewNavigator(cfg.Tree, cfg.Directory, onError),
		store:     cfg.Store,
		recorder:  cfg.Recorder,
		log:       log,
		metrics:   cfg.Metrics,
	}
}

// Handle processes one turn. Only a missing session id is an error; store and
// recorder failures are logged and do not change the response.
func (s *Service) Handle(ctx context.Context, t Turn) (Response, error) {
	start := time.Now()
	if strings.TrimSpace(t.SessionID) == "" {
		s.log.Debug("Rejected menu turn without session id")
		return Response{}, ErrMalformedTurn
	}
	log := s.log.WithFields(logger.SessionIDField(t.SessionID))

	sess := s.store.Load(ctx, t.SessionID)
	now := s.store.Now()
	path := SplitPath(t.Text)
	if t.PhoneNumber != "" {
		sess.PhoneNumber = t.PhoneNumber
	}

	resp := s.navigator.Navigate(ctx, Request{
		SessionID:   t.SessionID,
		PhoneNumber: sess.PhoneNumber,
		Path:        path,
		Slots:       sess.Slots,
		Now:         now,
	})

	sess.Path = path
	for k, v := range resp.Slots {
		sess.SetSlot(k, v)
	}
	s.store.Save(ctx, sess)

	log.Debug("Menu turn handled",
		logger.IntField("depth", resp.Depth),
		logger.StringField("mode", resp.Mode.String()))

	if s.recorder != nil {
		if resp.Submission != nil {
			if err := s.recorder.RecordSubmission(ctx, *resp.Submission); err != nil {
				log.Warn("Failed to record submission",
					logger.StringField("reference", resp.Submission.Reference), logger.ErrorField(err))
			} else {
				log.Info("Recorded submission",
					logger.StringField("kind", string(resp.Submission.Kind)),
					logger.StringField("reference", resp.Submission.Reference))
			}
		}
		err := s.recorder.RecordInteraction(ctx, Interaction{
			SessionID:   t.SessionID,
			PhoneNumber: sess.PhoneNumber,
			ServiceCode: t.ServiceCode,
			Text:        t.Text,
			Mode:        resp.Mode,
			Response:    resp.Text,
			At:          now,
		})
		if err != nil {
			log.Warn("Failed to record interaction", logger.ErrorField(err))
		}
	}

	s.metrics.ObserveTurn(string(session_store.ChannelMenu), resp.Mode.String(), time.Since(start))
	return resp, nil
}
