package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id"`
	Lines     []CartLine `bson:"products" json:"products"`
	CreatedAt time.Time  `bson:"created_at" json:"-"`
	UpdatedAt time.Time  `bson:"updated_at" json:"-"`
}

// CartLine references a product by id. A cart holds at most one line per
// product; repeated additions increment the quantity instead.
type CartLine struct {
	ProductID string `bson:"product" json:"product"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Line returns the line for productID, or nil if the product is not in the cart.
func (c *Cart) Line(productID string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}
