package ticket

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const EventTicketCreated = "ticket.created"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "tickets_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// Create inserts the ticket and its outbox event in one transaction, so
// every persisted ticket has exactly one pending event.
func (s *PostgresStore) Create(ctx context.Context, t *domain.Ticket) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertTicket := `INSERT INTO tickets (id, purchase_datetime, purchaser, amount, created_at)
	                 VALUES ($1, $2, $3, $4, NOW())`
	if _, err := tx.ExecContext(ctx, insertTicket,
		t.ID,
		t.PurchaseDatetime,
		t.Purchaser,
		t.Amount); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	insertEvent := `INSERT INTO ticket_outbox (aggregate_id, event_type, payload)
	                VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertEvent, t.ID.String(), EventTicketCreated, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	query := `SELECT id, purchase_datetime, purchaser, amount, created_at
	          FROM tickets WHERE id = $1`

	var t domain.Ticket
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.PurchaseDatetime,
		&t.Purchaser,
		&t.Amount,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ticket by id: %w", err)
	}

	return &t, nil
}

func (s *PostgresStore) ListByPurchaser(ctx context.Context, email string) ([]*domain.Ticket, error) {
	query := `SELECT id, purchase_datetime, purchaser, amount, created_at
	          FROM tickets WHERE purchaser = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query tickets by purchaser: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.PurchaseDatetime,
			&t.Purchaser,
			&t.Amount,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tickets, nil
}

func (s *PostgresStore) GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM ticket_outbox
	          WHERE published_at IS NULL
	          ORDER BY created_at
	          LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (s *PostgresStore) MarkEventPublished(ctx context.Context, id int64) error {
	query := `UPDATE ticket_outbox SET published_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
