package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/pricing"
)

// ActorHeader names the operator or device performing a change.
const ActorHeader = "X-Actor"

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the order endpoints and the health check on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/orders/{id}/history", h.History)
	r.Post("/orders/{id}/items", h.AttachItems)
	r.Post("/orders/{id}/payment", h.RecordPayment)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Get("/health", h.HealthCheck)
}

// --- Request / Response types ---

// createOrderRequest accepts client-computed totals for compatibility; they
// are ignored and derived from line items instead.
type createOrderRequest struct {
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	TableNumber   *int            `json:"tableNumber"`
	CustomerName  *string         `json:"customerName"`
	Subtotal      json.RawMessage `json:"subtotal,omitempty"`
	ServiceCharge json.RawMessage `json:"serviceCharge,omitempty"`
	Total         json.RawMessage `json:"total,omitempty"`
}

// lineItemRequest is one element of the POST /orders/{id}/items array.
// Client-side prices and names are not trusted; the menu is the price source.
type lineItemRequest struct {
	ItemID      string   `json:"itemId"`
	SizeID      *string  `json:"sizeId"`
	ModifierIDs []string `json:"modifierIds"`
	Quantity    int      `json:"quantity"`
}

type paymentRequest struct {
	Method string           `json:"method"`
	Amount *decimal.Decimal `json:"amount"`
	Status string           `json:"status"`
}

type updateStatusRequest struct {
	Status         string  `json:"status"`
	ExpectedStatus *string `json:"expectedStatus,omitempty"`
}

type orderResponse struct {
	ID                uuid.UUID `json:"id"`
	OrderNumber       int64     `json:"orderNumber"`
	Type              string    `json:"type"`
	Source            string    `json:"source"`
	TableNumber       *int      `json:"tableNumber"`
	CustomerName      *string   `json:"customerName"`
	Subtotal          string    `json:"subtotal"`
	ServiceChargeRate string    `json:"serviceChargeRate"`
	ServiceCharge     string    `json:"serviceCharge"`
	Total             string    `json:"total"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type lineModifierResponse struct {
	ModifierID uuid.UUID            `json:"modifierId"`
	Name       models.LocalizedText `json:"name"`
	Price      string               `json:"price"`
}

type lineItemResponse struct {
	ID         uuid.UUID              `json:"id"`
	OrderID    uuid.UUID              `json:"orderId"`
	ItemID     uuid.UUID              `json:"itemId"`
	ItemName   models.LocalizedText   `json:"itemName"`
	SizeID     *uuid.UUID             `json:"sizeId"`
	SizeName   *models.LocalizedText  `json:"sizeName"`
	Modifiers  []lineModifierResponse `json:"modifiers"`
	Quantity   int                    `json:"quantity"`
	UnitPrice  string                 `json:"unitPrice"`
	TotalPrice string                 `json:"totalPrice"`
	CreatedAt  time.Time              `json:"createdAt"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderDetailResponse struct {
	orderResponse
	Items    []lineItemResponse `json:"items"`
	Payments []paymentResponse  `json:"payments"`
}

type historyEntryResponse struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Notes     *string   `json:"notes,omitempty"`
}

// --- Handlers ---

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decodeStrict(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		Type:         models.OrderType(req.Type),
		Source:       models.OrderSource(req.Source),
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		Actor:        r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.writeError(w, r, "order_creation_failed", err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toOrderResponse(order))
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	details, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "order_lookup_failed", err)
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(&details.Order),
		Items:         toLineItemResponses(details.Items),
		Payments:      make([]paymentResponse, len(details.Payments)),
	}
	for i := range details.Payments {
		resp.Payments[i] = toPaymentResponse(&details.Payments[i])
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// History handles GET /orders/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "order_history_failed", err)
		return
	}

	resp := make([]historyEntryResponse, len(history))
	for i, entry := range history {
		resp[i] = historyEntryResponse{
			Status:    string(entry.Status),
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
			Notes:     entry.Notes,
		}
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// AttachItems handles POST /orders/{id}/items
func (h *Handler) AttachItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req []lineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, "validation_failed", models.NewValidationError("body", "request body must be a JSON array of line items"))
		return
	}

	selections := make([]models.MenuSelection, len(req))
	for i, line := range req {
		sel, err := toSelection(i, line)
		if err != nil {
			h.writeError(w, r, "validation_failed", err)
			return
		}
		selections[i] = sel
	}

	items, err := h.service.AttachLineItems(r.Context(), id, selections)
	if err != nil {
		h.writeError(w, r, "attach_items_failed", err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toLineItemResponses(items))
}

// RecordPayment handles POST /orders/{id}/payment
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if !h.decodeStrict(w, r, &req) {
		return
	}
	if req.Amount == nil {
		h.writeError(w, r, "validation_failed", models.NewValidationError("amount", "amount is required"))
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), id, PaymentInput{
		Method: models.PaymentMethod(req.Method),
		Amount: *req.Amount,
		Status: models.PaymentStatus(req.Status),
		Actor:  r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.writeError(w, r, "payment_failed", err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, toPaymentResponse(payment))
}

// UpdateStatus handles PATCH /orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if !h.decodeStrict(w, r, &req) {
		return
	}
	if req.Status == "" {
		h.writeError(w, r, "validation_failed", models.NewValidationError("status", "status is required"))
		return
	}

	var expected *models.OrderStatus
	if req.ExpectedStatus != nil {
		st := models.OrderStatus(*req.ExpectedStatus)
		expected = &st
	}

	if _, err := h.service.TransitionStatusFrom(r.Context(), id, expected, models.OrderStatus(req.Status), r.Header.Get(ActorHeader)); err != nil {
		h.writeError(w, r, "status_update_failed", err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	err := h.service.HealthCheck(r.Context())

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
	}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("health_check_failed", "Repository ping failed", logger.RequestID(r.Context()), err, nil)
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, r, status, response)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "validation_failed", models.NewValidationError("id", "invalid order id"))
		return uuid.Nil, false
	}
	return id, true
}

// decodeStrict decodes a JSON object body, rejecting unknown fields.
func (h *Handler) decodeStrict(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.logger.Debug("validation_failed", "Failed to parse request body", logger.RequestID(r.Context()), map[string]interface{}{
			"error": err.Error(),
		})
		h.writeError(w, r, "validation_failed", models.NewValidationError("body", "invalid JSON format"))
		return false
	}
	return true
}

func toSelection(index int, line lineItemRequest) (models.MenuSelection, error) {
	itemID, err := uuid.Parse(line.ItemID)
	if err != nil {
		return models.MenuSelection{}, models.NewValidationError(lineField(index, "item_id"), "invalid item id %q", line.ItemID)
	}

	sel := models.MenuSelection{ItemID: itemID, Quantity: line.Quantity}
	if line.SizeID != nil {
		sizeID, err := uuid.Parse(*line.SizeID)
		if err != nil {
			return models.MenuSelection{}, models.NewValidationError(lineField(index, "size_id"), "invalid size id %q", *line.SizeID)
		}
		sel.SizeID = &sizeID
	}
	for _, raw := range line.ModifierIDs {
		modID, err := uuid.Parse(raw)
		if err != nil {
			return models.MenuSelection{}, models.NewValidationError(lineField(index, "modifier_ids"), "invalid modifier id %q", raw)
		}
		sel.ModifierIDs = append(sel.ModifierIDs, modID)
	}
	return sel, nil
}

func toOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		Type:              string(o.Type),
		Source:            string(o.Source),
		TableNumber:       o.TableNumber,
		CustomerName:      o.CustomerName,
		Subtotal:          money(o.Subtotal),
		ServiceChargeRate: o.ServiceChargeRate.String(),
		ServiceCharge:     money(o.ServiceCharge),
		Total:             money(o.Total),
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toLineItemResponses(items []models.OrderLineItem) []lineItemResponse {
	resp := make([]lineItemResponse, len(items))
	for i, item := range items {
		mods := make([]lineModifierResponse, len(item.Modifiers))
		for j, m := range item.Modifiers {
			mods[j] = lineModifierResponse{ModifierID: m.ModifierID, Name: m.Name, Price: money(m.Price)}
		}
		resp[i] = lineItemResponse{
			ID:         item.ID,
			OrderID:    item.OrderID,
			ItemID:     item.ItemID,
			ItemName:   item.ItemName,
			SizeID:     item.SizeID,
			SizeName:   item.SizeName,
			Modifiers:  mods,
			Quantity:   item.Quantity,
			UnitPrice:  money(item.UnitPrice),
			TotalPrice: money(item.TotalPrice),
			CreatedAt:  item.CreatedAt,
		}
	}
	return resp
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    string(p.Method),
		Amount:    money(p.Amount),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(pricing.CurrencyPlaces)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", logger.RequestID(r.Context()), err, nil)
	}
}

// writeError maps the error taxonomy to a status code and writes the error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, action string, err error) {
	requestID := logger.RequestID(r.Context())
	status, body := errorBody(err)
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	body["request_id"] = requestID

	if status >= http.StatusInternalServerError {
		h.logger.Error(action, "Request failed", requestID, err, map[string]interface{}{
			"path": r.URL.Path,
		})
	} else {
		h.logger.Debug(action, err.Error(), requestID, map[string]interface{}{
			"path":        r.URL.Path,
			"status_code": status,
		})
	}

	h.writeJSON(w, r, status, body)
}

func errorBody(err error) (int, map[string]interface{}) {
	var (
		validation *models.ValidationError
		transition *models.InvalidTransitionError
		mismatch   *models.AmountMismatchError
		repo       *models.RepositoryError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, map[string]interface{}{
			"error":   validation.Error(),
			"details": map[string]string{"field": validation.Field, "message": validation.Message},
		}
	case errors.As(err, &transition):
		return http.StatusBadRequest, map[string]interface{}{
			"error": transition.Error(),
			"details": map[string]string{
				"current":   string(transition.Current),
				"requested": string(transition.Requested),
				"reason":    transition.Reason,
			},
		}
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, map[string]interface{}{
			"error": mismatch.Error(),
			"details": map[string]string{
				"expected": money(mismatch.Expected),
				"tendered": money(mismatch.Tendered),
			},
		}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, map[string]interface{}{"error": err.Error()}
	case errors.As(err, &repo):
		return http.StatusInternalServerError, map[string]interface{}{
			"error":   "Internal server error",
			"details": map[string]bool{"retryable": repo.Retryable()},
		}
	default:
		return http.StatusInternalServerError, map[string]interface{}{"error": "Internal server error"}
	}
}
