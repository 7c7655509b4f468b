package domain

// Product is an entry of the external product catalog.
type Product struct {
	ID   string
	SKU  string
	Name string
}
