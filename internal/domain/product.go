package domain

// Product is the catalog entry. Code is a unique business key, independent
// of the storage id. Stock is the live inventory count mutated by checkout.
type Product struct {
	ID          string   `bson:"_id,omitempty" json:"id"`
	Code        string   `bson:"code" json:"code"`
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Price       float64  `bson:"price" json:"price"`
	Stock       int      `bson:"stock" json:"stock"`
	Category    string   `bson:"category" json:"category"`
	Thumbnails  []string `bson:"thumbnails" json:"thumbnails"`
	Status      bool     `bson:"status" json:"status"`
}
