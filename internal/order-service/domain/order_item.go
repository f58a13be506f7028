package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRef is the weak reference an order item holds to a catalog product.
// It is nil once the product has been deleted.
type ProductRef struct {
	ID   int64
	Code uuid.UUID
}

// OrderItem is one line of an Order. ProductName and UnitPrice are snapshots
// taken when the item is created and never follow later product edits.
type OrderItem struct {
	ID          int64
	Code        uuid.UUID
	OrderID     int64
	Product     *ProductRef
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrderItem snapshots product's name and price for quantity units.
func NewOrderItem(product *Product, quantity int) (*OrderItem, error) {
	if err := requirePositiveQuantity(quantity); err != nil {
		return nil, err
	}
	return &OrderItem{
		Code:        uuid.New(),
		Product:     product.Ref(),
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
	}, nil
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// QuantityDeltaTo is the stock delta needed to move from the current quantity
// to n: positive reserves more, negative releases.
func (i *OrderItem) QuantityDeltaTo(n int) int {
	return n - i.Quantity
}

// ProductID returns the referenced product id, or 0 if the product is gone.
func (i *OrderItem) ProductID() int64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.ID
}

func (i *OrderItem) HasProduct() bool {
	return i.Product != nil
}
