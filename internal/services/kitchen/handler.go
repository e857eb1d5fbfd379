package kitchen

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// maxLookbackHours caps the max_age_hours query parameter.
const maxLookbackHours = 72

// Ticket is one order as shown on the kitchen display.
type Ticket struct {
	ID           uuid.UUID    `json:"id"`
	OrderNumber  int64        `json:"orderNumber"`
	Type         string       `json:"type"`
	Source       string       `json:"source"`
	TableNumber  *int         `json:"tableNumber"`
	CustomerName *string      `json:"customerName"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	Items        []TicketItem `json:"items"`
}

type TicketItem struct {
	ID        uuid.UUID              `json:"id"`
	ItemID    uuid.UUID              `json:"itemId"`
	ItemName  models.LocalizedText   `json:"itemName"`
	SizeName  *models.LocalizedText  `json:"sizeName"`
	Modifiers []models.LocalizedText `json:"modifiers"`
	Quantity  int                    `json:"quantity"`
}

// Handler serves the kitchen feed over HTTP
type Handler struct {
	feed   *Feed
	logger *logger.Logger
}

func NewHandler(feed *Feed, log *logger.Logger) *Handler {
	return &Handler{feed: feed, logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen/orders", h.KitchenOrders)
	r.Get("/kitchen/ready", h.ReadyOrders)
}

// KitchenOrders handles GET /kitchen/orders
func (h *Handler) KitchenOrders(w http.ResponseWriter, r *http.Request) {
	maxAge, ok := h.maxAge(w, r)
	if !ok {
		return
	}

	orders, err := h.feed.GetKitchenOrders(r.Context(), maxAge)
	if err != nil {
		h.logger.Error("db_query_failed", "Failed to load kitchen orders", logger.RequestID(r.Context()), err, nil)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, r, http.StatusOK, ToTickets(orders))
}

// ReadyOrders handles GET /kitchen/ready
func (h *Handler) ReadyOrders(w http.ResponseWriter, r *http.Request) {
	maxAge, ok := h.maxAge(w, r)
	if !ok {
		return
	}

	orders, err := h.feed.GetReadyOrders(r.Context(), maxAge)
	if err != nil {
		h.logger.Error("db_query_failed", "Failed to load ready orders", logger.RequestID(r.Context()), err, nil)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, r, http.StatusOK, ToTickets(orders))
}

// maxAge parses the optional max_age_hours query parameter; 0 means default.
func (h *Handler) maxAge(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("max_age_hours")
	if raw == "" {
		return 0, true
	}

	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 || hours > maxLookbackHours {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "max_age_hours must be an integer between 1 and "+strconv.Itoa(maxLookbackHours))
		return 0, false
	}
	return hours, true
}

// ToTickets flattens orders into display tickets, preserving order.
func ToTickets(orders []models.OrderWithItems) []Ticket {
	tickets := make([]Ticket, len(orders))
	for i, o := range orders {
		items := make([]TicketItem, len(o.Items))
		for j, item := range o.Items {
			mods := make([]models.LocalizedText, len(item.Modifiers))
			for k, m := range item.Modifiers {
				mods[k] = m.Name
			}
			items[j] = TicketItem{
				ID:        item.ID,
				ItemID:    item.ItemID,
				ItemName:  item.ItemName,
				SizeName:  item.SizeName,
				Modifiers: mods,
				Quantity:  item.Quantity,
			}
		}
		tickets[i] = Ticket{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			Type:         string(o.Type),
			Source:       string(o.Source),
			TableNumber:  o.TableNumber,
			CustomerName: o.CustomerName,
			Status:       string(o.Status),
			CreatedAt:    o.CreatedAt,
			Items:        items,
		}
	}
	return tickets
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", logger.RequestID(r.Context()), err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	h.writeJSON(w, r, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": logger.RequestID(r.Context()),
	})
}
