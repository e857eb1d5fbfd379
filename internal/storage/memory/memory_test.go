package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/storage"
)

func newOrder(tenant string, status models.OrderStatus, createdAt time.Time) *models.Order {
	return &models.Order{
		TenantID:  tenant,
		Type:      models.Takeaway,
		Source:    models.SourcePOS,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateOrder_ConcurrentNumbersUniqueAndDense(t *testing.T) {
	store := New()
	ctx := context.Background()
	const n = 200

	numbers := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := newOrder("outlet-1", models.StatusPending, time.Now())
			assert.NoError(t, store.CreateOrder(ctx, o, "pos"))
			numbers[i] = o.OrderNumber
		}(i)
	}
	wg.Wait()

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, num := range numbers {
		assert.Equal(t, int64(i+1), num)
	}
}

func TestCreateOrder_CountersPerTenant(t *testing.T) {
	store := New()
	ctx := context.Background()

	a1 := newOrder("a", models.StatusPending, time.Now())
	b1 := newOrder("b", models.StatusPending, time.Now())
	a2 := newOrder("a", models.StatusPending, time.Now())
	require.NoError(t, store.CreateOrder(ctx, a1, "pos"))
	require.NoError(t, store.CreateOrder(ctx, b1, "pos"))
	require.NoError(t, store.CreateOrder(ctx, a2, "pos"))

	assert.Equal(t, int64(1), a1.OrderNumber)
	assert.Equal(t, int64(1), b1.OrderNumber)
	assert.Equal(t, int64(2), a2.OrderNumber)
	assert.NotEqual(t, uuid.Nil, a1.ID)

	history, err := store.StatusHistory(ctx, a1.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].Status)
}

func TestWithOrder_RollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	o := newOrder("t", models.StatusPending, time.Now())
	require.NoError(t, store.CreateOrder(ctx, o, "pos"))

	store.InjectFault(OpUpdateTotals, errors.New("connection reset"))
	err := store.WithOrder(ctx, o.ID, func(ctx context.Context, tx storage.OrderTx) error {
		require.NoError(t, tx.InsertLineItems(ctx, []models.OrderLineItem{{ID: uuid.New(), OrderID: o.ID, Quantity: 1}}))
		return tx.UpdateTotals(ctx, decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
	})
	require.Error(t, err)

	details, err := store.GetOrderDetails(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, details.Items)
	assert.True(t, details.Subtotal.IsZero())
}

func TestWithOrder_CommitsAndSeesStagedWrites(t *testing.T) {
	store := New()
	ctx := context.Background()
	o := newOrder("t", models.StatusPending, time.Now())
	require.NoError(t, store.CreateOrder(ctx, o, "pos"))

	err := store.WithOrder(ctx, o.ID, func(ctx context.Context, tx storage.OrderTx) error {
		require.NoError(t, tx.InsertLineItems(ctx, []models.OrderLineItem{{ID: uuid.New(), OrderID: o.ID, Quantity: 2}}))
		items, err := tx.LineItems(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)

		require.NoError(t, tx.InsertPayment(ctx, &models.Payment{ID: uuid.New(), OrderID: o.ID, Status: models.PaymentCompleted}))
		return tx.UpdateStatus(ctx, models.StatusConfirmed, "pos", "payment completed")
	})
	require.NoError(t, err)

	details, err := store.GetOrderDetails(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, details.Status)
	assert.Len(t, details.Items, 1)
	assert.Len(t, details.Payments, 1)

	history, err := store.StatusHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusConfirmed, history[1].Status)
	require.NotNil(t, history[1].Notes)
	assert.Equal(t, "payment completed", *history[1].Notes)
}

func TestWithOrder_NotFound(t *testing.T) {
	err := New().WithOrder(context.Background(), uuid.New(), func(context.Context, storage.OrderTx) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompareAndSwapStatus_SingleWinner(t *testing.T) {
	store := New()
	ctx := context.Background()
	o := newOrder("t", models.StatusPreparing, time.Now())
	require.NoError(t, store.CreateOrder(ctx, o, "pos"))

	const n = 50
	var wins, lost int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CompareAndSwapStatus(ctx, o.ID, models.StatusPreparing, models.StatusCancelled, "kitchen", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, storage.ErrStatusChanged) {
				lost++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, lost)
}

func TestCompareAndSwapStatus_NotFound(t *testing.T) {
	_, err := New().CompareAndSwapStatus(context.Background(), uuid.New(), models.StatusReady, models.StatusServed, "", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrdersByStatus_FiltersAndOrders(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now()

	older := newOrder("t", models.StatusPreparing, now.Add(-2*time.Hour))
	newer := newOrder("t", models.StatusConfirmed, now.Add(-10*time.Minute))
	stale := newOrder("t", models.StatusConfirmed, now.Add(-5*time.Hour))
	ready := newOrder("t", models.StatusReady, now.Add(-time.Hour))
	for _, o := range []*models.Order{newer, stale, ready, older} {
		require.NoError(t, store.CreateOrder(ctx, o, "pos"))
	}

	got, err := store.OrdersByStatus(ctx, []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, now.Add(-4*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, older.ID, got[0].ID)
	assert.Equal(t, newer.ID, got[1].ID)
}

func TestMenuLookups(t *testing.T) {
	store := New()
	ctx := context.Background()

	n, err := store.LoadMenuSeed(filepath.Join("..", "..", "..", "menu.seed.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tea, err := store.MenuItem(ctx, uuid.MustParse("6f1d2c1e-8a55-4b8e-9a51-0d6c2f1b7a02"))
	require.NoError(t, err)
	assert.True(t, tea.HasSizes)
	assert.Len(t, tea.Sizes, 2)

	wrap, err := store.MenuItem(ctx, uuid.MustParse("6f1d2c1e-8a55-4b8e-9a51-0d6c2f1b7a03"))
	require.NoError(t, err)
	assert.False(t, wrap.Active)

	mods, err := store.Modifiers(ctx, []uuid.UUID{
		uuid.MustParse("0b3c9a62-1f2e-4d8a-8c1b-5e7f9a2d4c02"),
		uuid.MustParse("0b3c9a62-1f2e-4d8a-8c1b-5e7f9a2d4c01"),
	})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "Cheese", mods[0].Name.En)

	_, err = store.Modifiers(ctx, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.MenuItem(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"4.50", "4.5", false},
		{"12", "12", false},
		{"3.005", "", true},
		{"-1.00", "", true},
		{"ten", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), got.String())
		})
	}
}
