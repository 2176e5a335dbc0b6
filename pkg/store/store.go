// Package store persists fixtures, runbooks and tickets to a local SQLite
// database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ethpandaops/netops/pkg/types"
)

// ErrTicketNotFound is returned when no ticket exists for an incident.
var ErrTicketNotFound = errors.New("ticket not found")

// Tables lists the managed tables in creation order.
var Tables = []string{"devices", "interfaces", "incidents", "runbooks", "tickets"}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id TEXT PRIMARY KEY,
	hostname TEXT NOT NULL,
	site TEXT NOT NULL,
	os_version TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS interfaces (
	device_id TEXT NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	packet_loss REAL NOT NULL,
	error_rate REAL NOT NULL,
	PRIMARY KEY (device_id, name)
);
CREATE TABLE IF NOT EXISTS incidents (
	incident_id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	interface TEXT NOT NULL,
	summary TEXT NOT NULL,
	category TEXT NOT NULL,
	severity TEXT NOT NULL,
	gateway TEXT NOT NULL,
	should_fail INTEGER NOT NULL DEFAULT 0,
	failure_reason TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS runbooks (
	runbook_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	incident_id TEXT NOT NULL,
	runbook_id TEXT NOT NULL,
	notes TEXT NOT NULL,
	validation_passed INTEGER NOT NULL,
	validation_reason TEXT NOT NULL,
	escalated INTEGER NOT NULL,
	actions TEXT NOT NULL,
	score REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tickets_incident ON tickets(incident_id);
`

// Store is a SQLite-backed sink. It is safe for concurrent use; writes are
// serialized through a single connection.
type Store struct {
	log logrus.FieldLogger
	db  *sql.DB
}

// Open opens (creating if needed) the database at path and initializes the
// schema. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, log logrus.FieldLogger, path string) (*Store, error) {
	dsn := ":memory:"

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}

		dsn = "file:" + path + "?_pragma=busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{
		log: log.WithField("component", "store"),
		db:  db,
	}

	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	s.log.WithField("path", path).Debug("Database opened")

	return s, nil
}

// InitSchema creates missing tables.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// replace deletes every row of table and inserts rows in one transaction.
func (s *Store) replace(ctx context.Context, table, insert string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}

	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", table, err)
	}

	s.log.WithFields(logrus.Fields{"table": table, "rows": n}).Debug("Table replaced")

	return nil
}

// LoadDevices replaces the devices table.
func (s *Store) LoadDevices(ctx context.Context, devices []types.Device) error {
	return s.replace(ctx, "devices",
		`INSERT INTO devices(device_id, hostname, site, os_version) VALUES(?,?,?,?)`,
		len(devices), func(i int) []any {
			d := devices[i]
			return []any{d.ID, d.Hostname, d.Site, d.OSVersion}
		})
}

// LoadInterfaces replaces the interfaces table.
func (s *Store) LoadInterfaces(ctx context.Context, interfaces []types.Interface) error {
	return s.replace(ctx, "interfaces",
		`INSERT INTO interfaces(device_id, name, status, packet_loss, error_rate) VALUES(?,?,?,?,?)`,
		len(interfaces), func(i int) []any {
			f := interfaces[i]
			return []any{f.DeviceID, f.Name, f.Status, f.PacketLoss, f.ErrorRate}
		})
}

// LoadIncidents replaces the incidents table.
func (s *Store) LoadIncidents(ctx context.Context, incidents []types.Incident) error {
	return s.replace(ctx, "incidents",
		`INSERT INTO incidents(incident_id, device_id, interface, summary, category, severity, gateway, should_fail, failure_reason)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		len(incidents), func(i int) []any {
			inc := incidents[i]
			return []any{
				inc.ID, inc.DeviceID, inc.Interface, inc.Summary, inc.Category,
				inc.Severity.String(), inc.Gateway, inc.ShouldFail, inc.FailureReason,
			}
		})
}

// SaveRunbooks replaces the runbooks table. Each runbook is stored with its
// index vector, which may be missing.
func (s *Store) SaveRunbooks(ctx context.Context, runbooks []types.Runbook, vectors map[string][]float64) error {
	embeddings := make([]string, len(runbooks))

	for i, rb := range runbooks {
		vec := vectors[rb.ID]
		if vec == nil {
			vec = []float64{}
		}

		data, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encoding vector for %s: %w", rb.ID, err)
		}

		embeddings[i] = string(data)
	}

	return s.replace(ctx, "runbooks",
		`INSERT INTO runbooks(runbook_id, title, category, content, embedding) VALUES(?,?,?,?,?)`,
		len(runbooks), func(i int) []any {
			rb := runbooks[i]
			return []any{rb.ID, rb.Title, rb.Category, rb.Content(), embeddings[i]}
		})
}

// WriteTicket appends a ticket. Tickets are never updated.
func (s *Store) WriteTicket(ctx context.Context, ticket types.Ticket) error {
	actions := ticket.Actions
	if actions == nil {
		actions = []string{}
	}

	data, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encoding actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tickets(incident_id, runbook_id, notes, validation_passed, validation_reason, escalated, actions, score)
		 VALUES(?,?,?,?,?,?,?,?)`,
		ticket.IncidentID, ticket.RunbookID, ticket.Notes, ticket.ValidationPassed,
		ticket.ValidationReason, ticket.Escalated, string(data), ticket.Score,
	)
	if err != nil {
		return fmt.Errorf("writing ticket for %s: %w", ticket.IncidentID, err)
	}

	return nil
}

const ticketColumns = `incident_id, runbook_id, notes, validation_passed, validation_reason, escalated, actions, score`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (types.Ticket, error) {
	var (
		t       types.Ticket
		actions string
	)

	if err := row.Scan(&t.IncidentID, &t.RunbookID, &t.Notes, &t.ValidationPassed,
		&t.ValidationReason, &t.Escalated, &actions, &t.Score); err != nil {
		return types.Ticket{}, err
	}

	if err := json.Unmarshal([]byte(actions), &t.Actions); err != nil {
		return types.Ticket{}, fmt.Errorf("decoding actions: %w", err)
	}

	return t, nil
}

// Tickets returns every ticket in write order.
func (s *Store) Tickets(ctx context.Context) ([]types.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}

	defer rows.Close()

	tickets := make([]types.Ticket, 0)

	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}

		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// Ticket returns the most recent ticket for an incident.
func (s *Store) Ticket(ctx context.Context, incidentID string) (types.Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE incident_id = ? ORDER BY id DESC LIMIT 1`, incidentID)

	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, incidentID)
	}

	if err != nil {
		return types.Ticket{}, fmt.Errorf("reading ticket %s: %w", incidentID, err)
	}

	return t, nil
}

// Devices returns the stored devices ordered by id.
func (s *Store) Devices(ctx context.Context) ([]types.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device_id, hostname, site, os_version FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}

	defer rows.Close()

	devices := make([]types.Device, 0)

	for rows.Next() {
		var d types.Device
		if err := rows.Scan(&d.ID, &d.Hostname, &d.Site, &d.OSVersion); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}

		devices = append(devices, d)
	}

	return devices, rows.Err()
}

// Interfaces returns the stored interfaces ordered by device and name.
func (s *Store) Interfaces(ctx context.Context) ([]types.Interface, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device_id, name, status, packet_loss, error_rate FROM interfaces ORDER BY device_id, name`)
	if err != nil {
		return nil, fmt.Errorf("querying interfaces: %w", err)
	}

	defer rows.Close()

	interfaces := make([]types.Interface, 0)

	for rows.Next() {
		var f types.Interface
		if err := rows.Scan(&f.DeviceID, &f.Name, &f.Status, &f.PacketLoss, &f.ErrorRate); err != nil {
			return nil, fmt.Errorf("scanning interface: %w", err)
		}

		interfaces = append(interfaces, f)
	}

	return interfaces, rows.Err()
}

// Incidents returns the stored incidents ordered by id.
func (s *Store) Incidents(ctx context.Context) ([]types.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT incident_id, device_id, interface, summary, category, severity, gateway, should_fail, failure_reason
		 FROM incidents ORDER BY incident_id`)
	if err != nil {
		return nil, fmt.Errorf("querying incidents: %w", err)
	}

	defer rows.Close()

	incidents := make([]types.Incident, 0)

	for rows.Next() {
		var (
			inc      types.Incident
			severity string
		)

		if err := rows.Scan(&inc.ID, &inc.DeviceID, &inc.Interface, &inc.Summary, &inc.Category,
			&severity, &inc.Gateway, &inc.ShouldFail, &inc.FailureReason); err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}

		if inc.Severity, err = types.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("incident %s: %w", inc.ID, err)
		}

		incidents = append(incidents, inc)
	}

	return incidents, rows.Err()
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// TableCounts returns the row count of every managed table.
func (s *Store) TableCounts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))

	for _, table := range Tables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}

		counts = append(counts, TableCount{Table: table, Rows: n})
	}

	return counts, nil
}
