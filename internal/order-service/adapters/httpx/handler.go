package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

type ProductService interface {
	Create(ctx context.Context, in app.ProductInput) (*domain.Product, error)
	Get(ctx context.Context, code uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, page ports.Page) (ports.Listing[*domain.Product], error)
	Update(ctx context.Context, code uuid.UUID, in app.UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, code uuid.UUID) error
}

type OrderService interface {
	Create(ctx context.Context, in app.CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, code uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, page ports.Page) (ports.Listing[*domain.Order], error)
	ListItems(ctx context.Context, code uuid.UUID, page ports.Page) (ports.Listing[*domain.OrderItem], error)
	Update(ctx context.Context, code uuid.UUID, in app.UpdateOrderInput) (*domain.Order, error)
	Delete(ctx context.Context, code uuid.UUID) error
}

type OrderItemService interface {
	Create(ctx context.Context, in app.CreateOrderItemInput) (*domain.OrderItem, error)
	Get(ctx context.Context, code uuid.UUID) (*domain.OrderItem, error)
	List(ctx context.Context, page ports.Page) (ports.Listing[*domain.OrderItem], error)
	Update(ctx context.Context, code uuid.UUID, in app.UpdateOrderItemInput) (*domain.OrderItem, error)
	Delete(ctx context.Context, code uuid.UUID) error
}

// Handler translates JSON requests into calls on the lifecycle services.
type Handler struct {
	products ProductService
	orders   OrderService
	items    OrderItemService
}

func NewHandler(products ProductService, orders OrderService, items OrderItemService) *Handler {
	return &Handler{products: products, orders: orders, items: items}
}

// ── products ────────────────────────────────────────────────────────────────

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	in, ok := productInput(w, req)
	if !ok {
		return
	}

	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, p.Code, mapProduct(p))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	products, err := h.products.List(r.Context(), page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, page, products, mapProduct)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	in, ok := productInput(w, req)
	if !ok {
		return
	}
	if req.Version == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "version is required")
		return
	}

	p, err := h.products.Update(r.Context(), code, app.UpdateProductInput{ProductInput: in, Version: *req.Version})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── orders ──────────────────────────────────────────────────────────────────

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	lines := make([]app.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, app.LineItem{ProductCode: it.ProductCode, Quantity: it.Quantity})
	}

	o, err := h.orders.Create(r.Context(), app.CreateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         lines,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, o.Code, mapOrder(o))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.List(r.Context(), page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, page, orders, mapOrder)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) ListOrderItemsOfOrder(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, err := h.orders.ListItems(r.Context(), code, page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, page, items, mapOrderItem)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if !decode(w, r, &req) {
		return
	}
	status, known := domain.ParseStatus(req.Status)
	if !known {
		writeError(w, http.StatusBadRequest, "validation_failed", "status must be one of PENDING, PROCESSING, COMPLETED, CANCELLED")
		return
	}
	if req.Version == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "version is required")
		return
	}

	o, err := h.orders.Update(r.Context(), code, app.UpdateOrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Status:        status,
		Version:       *req.Version,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── order items ─────────────────────────────────────────────────────────────

func (h *Handler) CreateOrderItem(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderItemRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.items.Create(r.Context(), app.CreateOrderItemInput{
		OrderCode:   req.OrderCode,
		ProductCode: req.ProductCode,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, item.Code, mapOrderItem(item))
}

func (h *Handler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	items, err := h.items.List(r.Context(), page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writePage(w, page, items, mapOrderItem)
}

func (h *Handler) GetOrderItem(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	item, err := h.items.Get(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderItem(item))
}

func (h *Handler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	var req UpdateOrderItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Version == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "version is required")
		return
	}
	item, err := h.items.Update(r.Context(), code, app.UpdateOrderItemInput{Quantity: req.Quantity, Version: *req.Version})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderItem(item))
}

func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	code, ok := codeParam(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), code); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Malformed request body")
		return false
	}
	return true
}

func codeParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	code, err := uuid.Parse(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid value for parameter: code")
		return uuid.Nil, false
	}
	return code, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (ports.Page, bool) {
	var page ports.Page
	for name, dst := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid value for parameter: "+name)
			return ports.Page{}, false
		}
		*dst = n
	}
	return page.Normalize(), true
}

func productInput(w http.ResponseWriter, req ProductRequest) (app.ProductInput, bool) {
	if req.Price == nil || req.StockQuantity == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "price and stockQuantity are required")
		return app.ProductInput{}, false
	}
	return app.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: *req.StockQuantity,
	}, true
}

func writeCreated(w http.ResponseWriter, r *http.Request, code uuid.UUID, body any) {
	w.Header().Set("Location", r.URL.Path+"/"+code.String())
	writeJSON(w, http.StatusCreated, body)
}

func writePage[T, R any](w http.ResponseWriter, page ports.Page, rows ports.Listing[T], fn func(T) R) {
	writeJSON(w, http.StatusOK, PageResponse[R]{
		Content:       mapSlice(rows.Items, fn),
		Page:          page.Number,
		Size:          page.Size,
		TotalElements: rows.Total,
		TotalPages:    rows.TotalPages(page.Size),
	})
}
