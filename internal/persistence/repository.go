// Package persistence stores menu submissions and the interaction log in
// Postgres and answers the menu's status lookups.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/ward_desk/internal/menu"
	"github.com/lewisedginton/ward_desk/internal/persistence/sqlc"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Repository implements menu.Recorder and menu.Directory.
type Repository struct {
	db      *pgxpool.Pool
	queries sqlc.Querier
	logger  logger.Logger
}

var (
	_ menu.Recorder  = (*Repository)(nil)
	_ menu.Directory = (*Repository)(nil)
)

// NewRepository creates a repository over pool.
func NewRepository(pool *pgxpool.Pool, log logger.Logger) *Repository {
	return newRepository(pool, sqlc.New(pool), log)
}

func newRepository(pool *pgxpool.Pool, q sqlc.Querier, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Repository{db: pool, queries: q, logger: log.WithFields(logger.StringField("component", "persistence"))}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{
		db:      r.db,
		queries: sqlc.New(tx),
		logger:  r.logger,
	}
}

// Ping checks the connection, for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("no database pool")
	}
	return r.db.Ping(ctx)
}

// RecordSubmission stores a completed registration or issue report.
func (r *Repository) RecordSubmission(ctx context.Context, s menu.Submission) error {
	switch s.Kind {
	case menu.SubmissionRegistration:
		_, err := r.queries.CreateRegistration(ctx, sqlc.CreateRegistrationParams{
			Reference:   s.Reference,
			SessionID:   s.SessionID,
			PhoneNumber: s.PhoneNumber,
			NationalID:  s.NationalID,
			FullName:    s.FullName,
			CreatedAt:   timestamptz(s.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("create registration %s: %w", s.Reference, err)
		}
	case menu.SubmissionIssueReport:
		_, err := r.queries.CreateIssueReport(ctx, sqlc.CreateIssueReportParams{
			Ticket:      s.Reference,
			SessionID:   s.SessionID,
			PhoneNumber: s.PhoneNumber,
			Category:    s.Category,
			Description: s.Description,
			CreatedAt:   timestamptz(s.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("create issue report %s: %w", s.Reference, err)
		}
	default:
		return fmt.Errorf("unknown submission kind %q", s.Kind)
	}
	r.logger.Debug("Stored submission",
		logger.StringField("kind", string(s.Kind)), logger.StringField("reference", s.Reference))
	return nil
}

// RecordInteraction appends one menu turn to the audit log.
func (r *Repository) RecordInteraction(ctx context.Context, i menu.Interaction) error {
	err := r.queries.CreateMenuInteraction(ctx, sqlc.CreateMenuInteractionParams{
		SessionID:   i.SessionID,
		PhoneNumber: i.PhoneNumber,
		ServiceCode: i.ServiceCode,
		InputText:   i.Text,
		Mode:        i.Mode.String(),
		Response:    i.Response,
		CreatedAt:   timestamptz(i.At),
	})
	if err != nil {
		return fmt.Errorf("create menu interaction: %w", err)
	}
	return nil
}

// RegistrationByNationalID returns the latest registration for nationalID.
func (r *Repository) RegistrationByNationalID(ctx context.Context, nationalID string) (menu.Registration, error) {
	row, err := r.queries.GetLatestRegistrationByNationalID(ctx, nationalID)
	if err != nil {
		return menu.Registration{}, notFound(err, "get registration")
	}
	return menu.Registration{
		Reference:   row.Reference,
		NationalID:  row.NationalID,
		FullName:    row.FullName,
		Status:      row.Status,
		SubmittedAt: row.CreatedAt.Time,
	}, nil
}

// IssuesByPhone lists the newest issues reported from phone.
func (r *Repository) IssuesByPhone(ctx context.Context, phone string, limit int) ([]menu.Issue, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.queries.ListIssueReportsByPhone(ctx, sqlc.ListIssueReportsByPhoneParams{
		PhoneNumber: phone,
		Limit:       int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list issue reports: %w", err)
	}
	issues := make([]menu.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, convertIssue(row))
	}
	return issues, nil
}

// IssueByTicket returns the latest issue filed under ticket.
func (r *Repository) IssueByTicket(ctx context.Context, ticket string) (menu.Issue, error) {
	row, err := r.queries.GetLatestIssueReportByTicket(ctx, ticket)
	if err != nil {
		return menu.Issue{}, notFound(err, "get issue report")
	}
	return convertIssue(row), nil
}

func convertIssue(row sqlc.IssueReport) menu.Issue {
	return menu.Issue{
		Ticket:      row.Ticket,
		Category:    row.Category,
		Description: row.Description,
		Status:      row.Status,
		ReportedAt:  row.CreatedAt.Time,
	}
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = time.Now()
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// notFound maps pgx.ErrNoRows to menu.ErrNotFound.
func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return menu.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
