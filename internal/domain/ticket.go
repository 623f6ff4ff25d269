package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketTimeFormat is the purchase timestamp layout: 14 digits, second
// precision, local time.
const TicketTimeFormat = "20060102150405"

// Ticket is the immutable record of a completed purchase. The purchaser
// email is captured by value so the record survives later user edits.
type Ticket struct {
	ID               uuid.UUID `json:"id"`
	PurchaseDatetime string    `json:"purchase_datetime"`
	Purchaser        string    `json:"purchaser"`
	Amount           float64   `json:"amount"`
	CreatedAt        time.Time `json:"-"`
}
