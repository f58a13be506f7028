package httpx

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type ProductRequest struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stockQuantity"`
	Version       *int64           `json:"version,omitempty"`
}

type ProductResponse struct {
	Code          uuid.UUID       `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Version       int64           `json:"version"`
}

type OrderLineRequest struct {
	ProductCode uuid.UUID `json:"productCode"`
	Quantity    int       `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customerName"`
	CustomerEmail string             `json:"customerEmail"`
	Items         []OrderLineRequest `json:"items"`
}

type UpdateOrderRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Status        string `json:"status"`
	Version       *int64 `json:"version"`
}

type OrderResponse struct {
	Code          uuid.UUID           `json:"code"`
	CustomerName  string              `json:"customerName"`
	CustomerEmail string              `json:"customerEmail"`
	Status        domain.Status       `json:"status"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	OrderDate     time.Time           `json:"orderDate"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Version       int64               `json:"version"`
}

type CreateOrderItemRequest struct {
	OrderCode   uuid.UUID `json:"orderCode"`
	ProductCode uuid.UUID `json:"productCode"`
	Quantity    int       `json:"quantity"`
}

type UpdateOrderItemRequest struct {
	Quantity int    `json:"quantity"`
	Version  *int64 `json:"version"`
}

type OrderItemResponse struct {
	Code        uuid.UUID       `json:"code"`
	ProductCode *uuid.UUID      `json:"productCode"` // null once the product is deleted
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     int64           `json:"version"`
}

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		Code:          p.Code,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
}

func mapOrder(o *domain.Order) OrderResponse {
	return OrderResponse{
		Code:          o.Code,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		OrderDate:     o.OrderDate,
		Items:         mapSlice(o.Items, mapOrderItem),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}

func mapOrderItem(i *domain.OrderItem) OrderItemResponse {
	out := OrderItemResponse{
		Code:        i.Code,
		ProductName: i.ProductName,
		UnitPrice:   i.UnitPrice,
		Quantity:    i.Quantity,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		Version:     i.Version,
	}
	if i.Product != nil {
		code := i.Product.Code
		out.ProductCode = &code
	}
	return out
}

func mapSlice[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
