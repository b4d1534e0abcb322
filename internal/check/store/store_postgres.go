package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"licensecheck/internal/check"
	"licensecheck/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL through the pgx database/sql driver and checks
// the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Postgres persists agents and their check history.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const agentColumns = `id, full_name, first_name, last_name, jurisdiction, phone, npn,
	license_number, license_status, license_expiry, verified, verified_at, last_checked_at`

func (s *Postgres) Get(ctx context.Context, id string) (*check.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (s *Postgres) Save(ctx context.Context, agent *check.Agent) error {
	if agent == nil || agent.ID == "" {
		return sentinel.ErrInvalidInput
	}
	query := `
		INSERT INTO agents (` + agentColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			jurisdiction = EXCLUDED.jurisdiction,
			phone = EXCLUDED.phone,
			npn = EXCLUDED.npn,
			license_number = EXCLUDED.license_number,
			license_status = EXCLUDED.license_status,
			license_expiry = EXCLUDED.license_expiry,
			verified = EXCLUDED.verified,
			verified_at = EXCLUDED.verified_at,
			last_checked_at = EXCLUDED.last_checked_at,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		agent.ID, agent.FullName, agent.FirstName, agent.LastName, agent.Jurisdiction,
		agent.Phone, agent.NationalID, agent.LicenseNumber, agent.LicenseStatus,
		agent.LicenseExpiry, agent.Verified, nullTime(agent.VerifiedAt), nullTime(agent.LastCheckedAt),
	)
	if err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

// ListMonitored returns licensed agents with a name and jurisdiction on file,
// ordered by id.
func (s *Postgres) ListMonitored(ctx context.Context) ([]*check.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE license_status = ANY($1) AND full_name <> '' AND jurisdiction <> ''
		ORDER BY id`,
		pq.Array([]string{check.StatusLicensed}),
	)
	if err != nil {
		return nil, fmt.Errorf("list monitored agents: %w", err)
	}
	defer rows.Close()

	var agents []*check.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list monitored agents: %w", err)
	}
	return agents, nil
}

func (s *Postgres) Append(ctx context.Context, record *check.CheckRecord) error {
	if record == nil || record.AgentID == "" {
		return sentinel.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO license_checks (id, agent_id, jurisdiction, outcome, status, details, notified, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.AgentID, record.Jurisdiction, string(record.Outcome),
		record.Status, record.Details, record.Notified, record.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("append check record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByAgent(ctx context.Context, agentID string, limit int) ([]*check.CheckRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, jurisdiction, outcome, status, details, notified, checked_at
		FROM license_checks
		WHERE agent_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list check records: %w", err)
	}
	defer rows.Close()

	var records []*check.CheckRecord
	for rows.Next() {
		var (
			r       check.CheckRecord
			outcome string
		)
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Jurisdiction, &outcome, &r.Status, &r.Details, &r.Notified, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check record: %w", err)
		}
		r.Outcome = check.Outcome(outcome)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list check records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*check.Agent, error) {
	var (
		a                       check.Agent
		verifiedAt, lastChecked pq.NullTime
	)
	err := row.Scan(&a.ID, &a.FullName, &a.FirstName, &a.LastName, &a.Jurisdiction, &a.Phone,
		&a.NationalID, &a.LicenseNumber, &a.LicenseStatus, &a.LicenseExpiry, &a.Verified,
		&verifiedAt, &lastChecked)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		a.VerifiedAt = verifiedAt.Time.UTC()
	}
	if lastChecked.Valid {
		a.LastCheckedAt = lastChecked.Time.UTC()
	}
	return &a, nil
}

func nullTime(t time.Time) pq.NullTime {
	return pq.NullTime{Time: t, Valid: !t.IsZero()}
}
