package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
	"restaurant-pos/internal/storage/memory"
)

func quietLogger() *logger.Logger {
	return logger.NewWithWriter("kitchen", io.Discard, "error")
}

func addOrder(t *testing.T, store *memory.Store, status models.OrderStatus, age time.Duration, itemName string) *models.Order {
	t.Helper()
	ctx := context.Background()
	created := time.Now().UTC().Add(-age)
	order := &models.Order{
		TenantID:  "outlet-1",
		Type:      models.Takeaway,
		Source:    models.SourcePOS,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, store.CreateOrder(ctx, order, "pos"))

	size := models.LocalizedText{En: "Large", Ar: "كبير"}
	err := store.WithOrder(ctx, order.ID, func(ctx context.Context, tx storage.OrderTx) error {
		return tx.InsertLineItems(ctx, []models.OrderLineItem{{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ItemID:     uuid.New(),
			ItemName:   models.LocalizedText{En: itemName, Ar: itemName},
			SizeName:   &size,
			Modifiers:  []models.LineModifier{{ModifierID: uuid.New(), Name: models.LocalizedText{En: "Cheese", Ar: "جبن"}, Price: decimal.NewFromInt(3)}},
			Quantity:   2,
			UnitPrice:  decimal.NewFromInt(5),
			TotalPrice: decimal.NewFromInt(10),
			CreatedAt:  created,
		}})
	})
	require.NoError(t, err)
	return order
}

func TestGetKitchenOrders_StatusWindowAndOrder(t *testing.T) {
	store := memory.New()
	feed := NewFeed(store, quietLogger(), 0)

	preparingOld := addOrder(t, store, models.StatusPreparing, 3*time.Hour, "Shawarma")
	confirmedNew := addOrder(t, store, models.StatusConfirmed, 5*time.Minute, "Karak Tea")
	addOrder(t, store, models.StatusConfirmed, 5*time.Hour, "Stale")
	addOrder(t, store, models.StatusPending, time.Minute, "Unpaid")
	addOrder(t, store, models.StatusReady, time.Minute, "Ready")
	addOrder(t, store, models.StatusServed, time.Minute, "Served")
	addOrder(t, store, models.StatusCancelled, time.Minute, "Cancelled")

	orders, err := feed.GetKitchenOrders(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, preparingOld.ID, orders[0].ID)
	assert.Equal(t, confirmedNew.ID, orders[1].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Shawarma", orders[0].Items[0].ItemName.En)

	wide, err := feed.GetKitchenOrders(context.Background(), 6)
	require.NoError(t, err)
	assert.Len(t, wide, 3)

	again, err := feed.GetKitchenOrders(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, orders, again)
}

func TestGetReadyOrders(t *testing.T) {
	store := memory.New()
	feed := NewFeed(store, quietLogger(), 4)

	ready := addOrder(t, store, models.StatusReady, 10*time.Minute, "Falafel")
	addOrder(t, store, models.StatusPreparing, 10*time.Minute, "Shawarma")

	orders, err := feed.GetReadyOrders(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, ready.ID, orders[0].ID)
}

func TestGetKitchenOrders_RepositoryError(t *testing.T) {
	store := memory.New()
	store.InjectFault(memory.OpRead, errors.New("too many connections"))

	_, err := NewFeed(store, quietLogger(), 4).GetKitchenOrders(context.Background(), 0)
	var repoErr *models.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, "kitchen_orders", repoErr.Op)
}

func newKitchenRouter(store *memory.Store) http.Handler {
	log := quietLogger()
	r := chi.NewRouter()
	r.Use(log.Middleware)
	NewHandler(NewFeed(store, log, 4), log).RegisterRoutes(r)
	return r
}

func TestHandler_KitchenOrders(t *testing.T) {
	store := memory.New()
	first := addOrder(t, store, models.StatusConfirmed, time.Hour, "Shawarma")
	addOrder(t, store, models.StatusPreparing, time.Minute, "Karak Tea")
	addOrder(t, store, models.StatusPending, time.Minute, "Unpaid")

	rec := httptest.NewRecorder()
	newKitchenRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tickets []Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
	require.Len(t, tickets, 2)
	assert.Equal(t, first.ID, tickets[0].ID)
	assert.Equal(t, "confirmed", tickets[0].Status)
	require.Len(t, tickets[0].Items, 1)
	assert.Equal(t, 2, tickets[0].Items[0].Quantity)
	require.NotNil(t, tickets[0].Items[0].SizeName)
	assert.Equal(t, "Large", tickets[0].Items[0].SizeName.En)
	require.Len(t, tickets[0].Items[0].Modifiers, 1)
	assert.Equal(t, "Cheese", tickets[0].Items[0].Modifiers[0].En)
}

func TestHandler_EmptyFeedIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newKitchenRouter(memory.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandler_MaxAgeValidation(t *testing.T) {
	store := memory.New()
	router := newKitchenRouter(store)

	for _, q := range []string{"abc", "0", "-1", "1000"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/orders?max_age_hours="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	addOrder(t, store, models.StatusConfirmed, 10*time.Hour, "Old")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/orders?max_age_hours=12", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var tickets []Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
	assert.Len(t, tickets, 1)
}

func TestHandler_StoreFailureIs500(t *testing.T) {
	store := memory.New()
	store.InjectFault(memory.OpRead, errors.New("boom"))

	rec := httptest.NewRecorder()
	newKitchenRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
