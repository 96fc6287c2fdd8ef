package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

// Client archives advisory exchanges and generated alert batches. This
// is operational history, separate from the shared-state assessment
// list the advisory core maintains.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS advisory_history (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		context_tag TEXT,
		summary TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		manual_count INTEGER NOT NULL,
		aircraft_registration TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advisory_registration ON advisory_history(aircraft_registration);
	CREATE INDEX IF NOT EXISTS idx_advisory_created ON advisory_history(created_at);

	CREATE TABLE IF NOT EXISTS advisory_references (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exchange_id TEXT NOT NULL,
		title TEXT NOT NULL,
		source TEXT NOT NULL,
		url TEXT NOT NULL,
		FOREIGN KEY (exchange_id) REFERENCES advisory_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_references_exchange ON advisory_references(exchange_id);

	CREATE TABLE IF NOT EXISTS predicted_alerts (
		id TEXT PRIMARY KEY,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		component TEXT,
		predicted_date TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		source TEXT NOT NULL,
		aircraft_registration TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_registration ON predicted_alerts(aircraft_registration);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON predicted_alerts(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertExchange(exchange *models.AdvisoryExchange, references []models.Reference) error {
	query := `
		INSERT INTO advisory_history (id, query, context_tag, summary, recommendation, confidence,
			manual_count, aircraft_registration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		exchange.ID,
		exchange.Query,
		exchange.ContextTag,
		exchange.Summary,
		exchange.Recommendation,
		exchange.Confidence,
		exchange.ManualCount,
		exchange.AircraftRegistration,
		exchange.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange: %w", err)
	}

	for _, ref := range references {
		_, err := c.db.Exec(
			`INSERT INTO advisory_references (exchange_id, title, source, url) VALUES (?, ?, ?, ?)`,
			exchange.ID,
			ref.Title,
			ref.Source,
			ref.URL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert exchange reference: %w", err)
		}
	}

	logger.Debug("Exchange archived",
		zap.String("exchange_id", exchange.ID),
		zap.Int("confidence", exchange.Confidence),
	)

	return nil
}

func (c *Client) InsertAlerts(alerts []models.PredictedAlert) error {
	for _, a := range alerts {
		createdAt, err := time.Parse(time.RFC3339, a.CreatedAt)
		if err != nil {
			createdAt = time.Now()
		}

		_, err = c.db.Exec(
			`INSERT OR IGNORE INTO predicted_alerts (id, severity, title, description, component,
				predicted_date, confidence, source, aircraft_registration, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID,
			a.Severity,
			a.Title,
			a.Description,
			a.Component,
			a.PredictedDate,
			a.Confidence,
			a.Source,
			a.AircraftRegistration,
			createdAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	return nil
}

func (c *Client) GetHistory(limit int) ([]models.AdvisoryExchange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, query, context_tag, summary, recommendation, confidence,
			manual_count, aircraft_registration, created_at
		FROM advisory_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get advisory history: %w", err)
	}
	defer rows.Close()

	var exchanges []models.AdvisoryExchange
	for rows.Next() {
		var e models.AdvisoryExchange
		var createdAt int64

		err := rows.Scan(&e.ID, &e.Query, &e.ContextTag, &e.Summary, &e.Recommendation,
			&e.Confidence, &e.ManualCount, &e.AircraftRegistration, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.CreatedAt = time.Unix(createdAt, 0)
		exchanges = append(exchanges, e)
	}

	return exchanges, nil
}

func (c *Client) GetAlerts(registration string, limit int) ([]models.PredictedAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, severity, title, description, component, predicted_date,
			confidence, source, aircraft_registration, created_at
		FROM predicted_alerts
	`
	args := []any{}
	if registration != "" {
		query += ` WHERE aircraft_registration = ?`
		args = append(args, registration)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.PredictedAlert
	for rows.Next() {
		var a models.PredictedAlert
		var createdAt int64

		err := rows.Scan(&a.ID, &a.Severity, &a.Title, &a.Description, &a.Component,
			&a.PredictedDate, &a.Confidence, &a.Source, &a.AircraftRegistration, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.CreatedAt = time.Unix(createdAt, 0).UTC().Format(time.RFC3339)
		alerts = append(alerts, a)
	}

	return alerts, nil
}
