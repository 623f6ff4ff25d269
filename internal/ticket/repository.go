package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/carlamarinaap/go-shop/internal/domain"
	"github.com/google/uuid"
)

var ErrTicketNotFound = errors.New("ticket not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending ticket event awaiting publication.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Store is append-only: tickets are never updated or deleted. Create
// also enqueues the outbox event in the same transaction.
type Store interface {
	Create(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	ListByPurchaser(ctx context.Context, email string) ([]*domain.Ticket, error)
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
	RunMigrations(cred *Credentials) error
	Close() error
}
