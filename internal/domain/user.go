package domain

// User owns exactly one cart; the cart reference is how checkout resolves
// the purchaser. Read-only from this module's perspective.
type User struct {
	ID     string `bson:"_id,omitempty" json:"id"`
	Name   string `bson:"name" json:"name"`
	Email  string `bson:"email" json:"email"`
	CartID string `bson:"cart" json:"cart"`
}
