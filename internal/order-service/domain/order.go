package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the aggregate root for its items. Every change to Items goes
// through the methods below so TotalAmount always equals the sum of the
// line totals; the only exception is a cancelled order, whose total is zero.
type Order struct {
	ID            int64
	Code          uuid.UUID
	CustomerName  string
	CustomerEmail string
	Status        Status
	TotalAmount   decimal.Decimal
	OrderDate     time.Time
	Version       int64
	Items         []*OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder returns an empty PENDING order dated now.
func NewOrder(customerName, customerEmail string, now time.Time) (*Order, error) {
	name, email, err := validateCustomer(customerName, customerEmail)
	if err != nil {
		return nil, err
	}
	return &Order{
		Code:          uuid.New(),
		CustomerName:  name,
		CustomerEmail: email,
		Status:        StatusPending,
		TotalAmount:   decimal.Zero,
		OrderDate:     now,
	}, nil
}

// ApplyUpdate validates the status transition and applies the customer fields
// and status. It reports whether this update cancelled the order, in which
// case the total is reset to zero and the caller must release the stock held
// by the items. Nothing is changed when an error is returned.
func (o *Order) ApplyUpdate(customerName, customerEmail string, status Status) (cancelled bool, err error) {
	name, email, err := validateCustomer(customerName, customerEmail)
	if err != nil {
		return false, err
	}
	if err := o.Status.ValidateTransition(status); err != nil {
		return false, err
	}

	previous := o.Status
	o.CustomerName = name
	o.CustomerEmail = email
	o.Status = status

	if status == StatusCancelled && previous != StatusCancelled {
		o.TotalAmount = decimal.Zero
		return true, nil
	}
	return false, nil
}

func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// AcceptsItemChanges reports whether items may still be added, edited or
// removed. A cancelled order has already released its stock.
func (o *Order) AcceptsItemChanges() error {
	if o.IsCancelled() {
		return &ValidationError{Field: "order", Reason: "items of a CANCELLED order cannot be changed"}
	}
	return nil
}

func (o *Order) AddItem(item *OrderItem) {
	if item == nil {
		return
	}
	o.attach(item)
	o.RecalculateTotal()
}

func (o *Order) ReplaceItems(items []*OrderItem) {
	o.Items = o.Items[:0]
	for _, item := range items {
		o.attach(item)
	}
	o.RecalculateTotal()
}

// RemoveItem detaches the item with the given code and returns it.
func (o *Order) RemoveItem(code uuid.UUID) (*OrderItem, bool) {
	for i, item := range o.Items {
		if item.Code == code {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.RecalculateTotal()
			return item, true
		}
	}
	return nil, false
}

// ChangeItemQuantity sets the quantity of one of o's items.
func (o *Order) ChangeItemQuantity(code uuid.UUID, quantity int) (*OrderItem, error) {
	if err := requirePositiveQuantity(quantity); err != nil {
		return nil, err
	}
	item := o.Item(code)
	if item == nil {
		return nil, &NotFoundError{Entity: EntityOrderItem, Key: code.String()}
	}
	item.Quantity = quantity
	o.RecalculateTotal()
	return item, nil
}

func (o *Order) Item(code uuid.UUID) *OrderItem {
	for _, item := range o.Items {
		if item.Code == code {
			return item
		}
	}
	return nil
}

func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	o.TotalAmount = total
}

func (o *Order) attach(item *OrderItem) {
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
}

func validateCustomer(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", &ValidationError{Field: "customerName", Reason: "must not be blank"}
	}
	if len(name) > maxNameLength {
		return "", "", &ValidationError{Field: "customerName", Reason: "must be at most 255 characters"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", "", &ValidationError{Field: "customerEmail", Reason: "must be a valid email address"}
	}
	return name, email, nil
}
