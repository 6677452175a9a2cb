package domain

import (
	"strconv"
	"strings"
)

// Owner identifies a store. Email is compared case-insensitively.
type Owner struct {
	UserID int64
	Email  string
}

// NewOwner builds an Owner with a normalized email.
func NewOwner(userID int64, email string) Owner {
	return Owner{UserID: userID, Email: NormalizeEmail(email)}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalized returns a copy of o with its email in canonical form.
func (o Owner) Normalized() Owner {
	o.Email = NormalizeEmail(o.Email)
	return o
}

// Key is the canonical string form of the owner, used for locks and event keys.
func (o Owner) Key() string {
	return strconv.FormatInt(o.UserID, 10) + ":" + NormalizeEmail(o.Email)
}

// Store is a store record together with its embedded product list.
// Version is bumped by every successful write of Products.
type Store struct {
	Owner    Owner
	Products []Product
	Version  int64
}

// IndexOfSKU returns the position of the product with the given SKU, or -1.
func (s *Store) IndexOfSKU(sku string) int {
	return IndexOfSKU(s.Products, sku)
}

func IndexOfSKU(products []Product, sku string) int {
	sku = NormalizeSKU(sku)
	for i := range products {
		if NormalizeSKU(products[i].SKU) == sku {
			return i
		}
	}
	return -1
}

// CloneProducts returns an independent copy of products; nil becomes an empty slice.
func CloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// WithoutIndex returns a new slice with the element at i removed, preserving order.
func WithoutIndex(products []Product, i int) []Product {
	out := make([]Product, 0, len(products))
	out = append(out, products[:i]...)
	return append(out, products[i+1:]...)
}
