package domain

import (
	"errors"
	"fmt"
)

// Entity names used in error values and logs.
const (
	EntityProduct   = "Product"
	EntityOrder     = "Order"
	EntityOrderItem = "OrderItem"
)

// ErrDuplicateLineItem is returned when an order is submitted with the same
// product code on more than one line.
var ErrDuplicateLineItem = errors.New("duplicate product codes in order items are not allowed")

// NotFoundError reports a missing entity, keyed either by code or by id.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// OptimisticLockError reports that the caller's version no longer matches the
// persisted one.
type OptimisticLockError struct {
	Entity string
	Key    string
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("%s %s was modified by another request", e.Entity, e.Key)
}

type DuplicateResourceError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("%s with %s '%s' already exists", e.Entity, e.Field, e.Value)
}

type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product '%s': available=%d, requested=%d",
		e.ProductName, e.Available, e.Requested)
}

type InvalidStatusTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
