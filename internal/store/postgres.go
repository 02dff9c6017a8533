package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/jobscout/internal/cv"
	"github.com/spigell/jobscout/internal/profile"
	"github.com/spigell/jobscout/internal/tracker"
)

//go:embed schema.sql
var schema string

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, logger: logger}
}

// Migrate creates missing tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	p.logger.Debug("schema applied")
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) ListCompanies(ctx context.Context) ([]profile.Company, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, description, industry, size, website, headquarters, founded
		 FROM companies ORDER BY lower(name)`)
	if err != nil {
		return nil, fmt.Errorf("listCompanies query: %w", err)
	}
	defer rows.Close()

	out := make([]profile.Company, 0)
	for rows.Next() {
		var c profile.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Industry, &c.Size, &c.Website, &c.Headquarters, &c.Founded); err != nil {
			return nil, fmt.Errorf("listCompanies scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) GetCompany(ctx context.Context, id string) (*profile.Company, error) {
	var c profile.Company
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, description, industry, size, website, headquarters, founded
		 FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Industry, &c.Size, &c.Website, &c.Headquarters, &c.Founded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getCompany: %w", err)
	}
	return &c, nil
}

func (p *Postgres) SaveCompany(ctx context.Context, c profile.Company) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO companies (id, name, description, industry, size, website, headquarters, founded)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, description = EXCLUDED.description, industry = EXCLUDED.industry,
		   size = EXCLUDED.size, website = EXCLUDED.website, headquarters = EXCLUDED.headquarters,
		   founded = EXCLUDED.founded`,
		c.ID, c.Name, c.Description, c.Industry, c.Size, c.Website, c.Headquarters, c.Founded,
	)
	if err != nil {
		return fmt.Errorf("saveCompany: %w", err)
	}
	return nil
}

func (p *Postgres) GetPreferences(ctx context.Context, userID string) (profile.Preferences, error) {
	var prefs profile.Preferences
	err := p.getJSON(ctx, `SELECT data FROM preferences WHERE user_id = $1`, userID, &prefs)
	if errors.Is(err, ErrNotFound) {
		return profile.Preferences{}, nil
	}
	return prefs, err
}

func (p *Postgres) SavePreferences(ctx context.Context, userID string, prefs profile.Preferences) error {
	return p.upsertJSON(ctx,
		`INSERT INTO preferences (user_id, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		userID, prefs)
}

func (p *Postgres) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	var out profile.Profile
	if err := p.getJSON(ctx, `SELECT data FROM profiles WHERE user_id = $1`, userID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) SaveProfile(ctx context.Context, prof *profile.Profile) error {
	if prof == nil || prof.UserID == "" {
		return errors.New("profile with user id is required")
	}
	return p.upsertJSON(ctx,
		`INSERT INTO profiles (user_id, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		prof.UserID, prof)
}

func (p *Postgres) getJSON(ctx context.Context, query, userID string, dst any) error {
	var raw []byte
	err := p.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", userID, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode stored document: %w", err)
	}
	return nil
}

func (p *Postgres) upsertJSON(ctx context.Context, query, userID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("upsert %s: %w", userID, err)
	}
	return nil
}

func (p *Postgres) SaveGeneration(ctx context.Context, g *cv.Generation) error {
	opt, err := json.Marshal(g.Optimization)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO cv_generations (id, user_id, posting_key, template_id, document_url, optimization, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.UserID, g.PostingKey, g.TemplateID, g.DocumentURL, opt, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saveGeneration: %w", err)
	}
	return nil
}

func (p *Postgres) ListGenerations(ctx context.Context, userID string) ([]cv.Generation, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, posting_key, template_id, document_url, optimization, created_at
		 FROM cv_generations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listGenerations query: %w", err)
	}
	defer rows.Close()

	out := make([]cv.Generation, 0)
	for rows.Next() {
		var (
			g   cv.Generation
			opt []byte
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.PostingKey, &g.TemplateID, &g.DocumentURL, &opt, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("listGenerations scan: %w", err)
		}
		if err := json.Unmarshal(opt, &g.Optimization); err != nil {
			return nil, fmt.Errorf("decode optimization: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const applicationColumns = `id, user_id, posting_key, company_id, title, url, generation_id, status, history, created_at, updated_at`

func scanApplication(row pgx.Row) (*tracker.Application, error) {
	var (
		a       tracker.Application
		status  string
		history []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.PostingKey, &a.CompanyID, &a.Title, &a.URL, &a.GenerationID,
		&status, &history, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = tracker.Status(status)
	if err := json.Unmarshal(history, &a.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &a, nil
}

func (p *Postgres) CreateApplication(ctx context.Context, a *tracker.Application) error {
	history, err := json.Marshal(a.History)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.UserID, a.PostingKey, a.CompanyID, a.Title, a.URL, a.GenerationID,
		string(a.Status), history, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("createApplication: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateApplication(ctx context.Context, a *tracker.Application) error {
	history, err := json.Marshal(a.History)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE applications SET status = $1, history = $2, updated_at = $3
		 WHERE id = $4 AND user_id = $5`,
		string(a.Status), history, a.UpdatedAt, a.ID, a.UserID,
	)
	if err != nil {
		return fmt.Errorf("updateApplication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func (p *Postgres) GetApplication(ctx context.Context, userID, id string) (*tracker.Application, error) {
	a, err := scanApplication(p.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getApplication: %w", err)
	}
	return a, nil
}

func (p *Postgres) ListApplications(ctx context.Context, userID string) ([]tracker.Application, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listApplications query: %w", err)
	}
	defer rows.Close()

	out := make([]tracker.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("listApplications scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
