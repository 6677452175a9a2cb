package domain

import "strings"

// Product is a single inventory line embedded in a store.
type Product struct {
	SKU               string  `json:"sku" bson:"sku"`
	Name              string  `json:"name" bson:"name"`
	Category          string  `json:"category" bson:"category"`
	Quantity          int     `json:"quantity" bson:"quantity" validate:"min=0"`
	Price             float64 `json:"price" bson:"price" validate:"min=0"`
	ExpiryDate        string  `json:"expiry_date" bson:"expiryDate"`
	ManufacturingDate string  `json:"manufacturing_date" bson:"manufacturingDate"`
	Description       string  `json:"description" bson:"description"`
}

// NormalizeSKU returns the canonical form used for SKU comparisons.
func NormalizeSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}

// Normalized returns a copy of p with its SKU in canonical form.
func (p Product) Normalized() Product {
	p.SKU = NormalizeSKU(p.SKU)
	return p
}
