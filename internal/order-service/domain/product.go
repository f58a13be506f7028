package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 2000
)

type Product struct {
	ID            int64
	Code          uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewProduct validates the catalog fields and returns an unsaved product
// with a fresh code.
func NewProduct(name, description string, price decimal.Decimal, stock int) (*Product, error) {
	p := &Product{Code: uuid.New()}
	if err := p.Edit(name, description, price, stock); err != nil {
		return nil, err
	}
	return p, nil
}

// Edit replaces the catalog fields of p. The name is trimmed.
func (p *Product) Edit(name, description string, price decimal.Decimal, stock int) error {
	name = NormalizeName(name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Reason: "must not be blank"}
	case len(name) > maxNameLength:
		return &ValidationError{Field: "name", Reason: "must be at most 255 characters"}
	case len(description) > maxDescriptionLength:
		return &ValidationError{Field: "description", Reason: "must be at most 2000 characters"}
	case !price.IsPositive():
		return &ValidationError{Field: "price", Reason: "must be greater than zero"}
	case stock < 0:
		return &ValidationError{Field: "stockQuantity", Reason: "must not be negative"}
	}
	p.Name = name
	p.Description = description
	p.Price = price
	p.StockQuantity = stock
	return nil
}

// DecreaseStock reserves quantity units. On failure p is left unchanged.
func (p *Product) DecreaseStock(quantity int) error {
	if err := requirePositiveQuantity(quantity); err != nil {
		return err
	}
	if p.StockQuantity-quantity < 0 {
		return &InsufficientStockError{
			ProductName: p.Name,
			Available:   p.StockQuantity,
			Requested:   quantity,
		}
	}
	p.StockQuantity -= quantity
	return nil
}

// IncreaseStock releases quantity previously reserved units.
func (p *Product) IncreaseStock(quantity int) error {
	if err := requirePositiveQuantity(quantity); err != nil {
		return err
	}
	p.StockQuantity += quantity
	return nil
}

// Ref returns the weak reference an order item keeps to p.
func (p *Product) Ref() *ProductRef {
	return &ProductRef{ID: p.ID, Code: p.Code}
}

// NormalizeName is the form product names are stored and compared in.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

func requirePositiveQuantity(quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	return nil
}
