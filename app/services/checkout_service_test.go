package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/database/migrations"
	"github.com/huertohogar/huerto/pkg/database"
	"github.com/huertohogar/huerto/pkg/event"
)

// fakeProducts is an in-memory product service.
type fakeProducts struct {
	mu       sync.Mutex
	products map[string]models.Product
	updates  []string
}

func newFakeProducts(ps ...models.Product) *fakeProducts {
	f := &fakeProducts{products: map[string]models.Product{}}
	for _, p := range ps {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Product(_ context.Context, id string) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, errors.New("HTTP 404: no details")
	}
	return p, nil
}

func (f *fakeProducts) UpdateStock(_ context.Context, id string, stock int) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Stock = stock
	f.products[id] = p
	f.updates = append(f.updates, id)
	return p, nil
}

func (f *fakeProducts) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

// mockProducts is used where the exact call sequence matters.
type mockProducts struct{ mock.Mock }

func (m *mockProducts) Product(ctx context.Context, id string) (models.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Product), args.Error(1)
}

func (m *mockProducts) UpdateStock(ctx context.Context, id string, stock int) (models.Product, error) {
	args := m.Called(ctx, id, stock)
	return args.Get(0).(models.Product), args.Error(1)
}

type checkoutFixture struct {
	db      *gorm.DB
	bus     *event.Bus
	cart    *repositories.CartRepository
	orders  *repositories.OrderRepository
	journal *repositories.JournalRepository
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, migrations.Apply(db))
	t.Cleanup(func() { _ = database.Close(db) })

	bus := event.New()
	return &checkoutFixture{
		db:      db,
		bus:     bus,
		cart:    repositories.NewCartRepository(db, bus),
		orders:  repositories.NewOrderRepository(db, bus),
		journal: repositories.NewJournalRepository(db),
	}
}

func (f *checkoutFixture) service(products services.ProductGateway) *services.CheckoutService {
	return services.NewCheckoutService(products, f.cart, f.orders, f.journal, f.bus)
}

func (f *checkoutFixture) add(t *testing.T, p models.Product, qty int) {
	t.Helper()
	for i := 0; i < qty; i++ {
		_, err := f.cart.AddToCart(context.Background(), p)
		require.NoError(t, err)
	}
}

func (f *checkoutFixture) journalStatuses(t *testing.T) []models.JournalStatus {
	t.Helper()
	var entries []models.CheckoutJournal
	require.NoError(t, f.db.Order("created_at asc").Find(&entries).Error)
	out := make([]models.JournalStatus, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Status)
	}
	return out
}

var p1 = models.Product{ID: "p1", Name: "Tomates Orgánicos", Price: 1000, Stock: 10}

func TestCheckoutSuccess(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	products := newFakeProducts(p1)
	svc := f.service(products)

	var completed []models.Order
	f.bus.Listen(services.TopicCheckoutCompleted, func(p interface{}) { completed = append(completed, p.(models.Order)) })

	f.add(t, p1, 2)

	order, err := svc.Checkout(ctx, "u1", "Av. Los Pinos 123")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.InDelta(t, 2000, order.Subtotal, 1e-9)
	assert.InDelta(t, 380, order.Tax, 1e-9)
	assert.InDelta(t, 2380, order.Total, 1e-9)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, 1000.0, order.Lines[0].UnitPrice)
	assert.Equal(t, "Av. Los Pinos 123", order.ShippingAddress)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, 8, products.stock("p1"))

	history, err := f.orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)

	state := svc.State()
	assert.Equal(t, services.PhaseSuccess, state.Phase)
	require.NotNil(t, state.Order)
	assert.Equal(t, order.ID, state.Order.ID)

	assert.Equal(t, []models.JournalStatus{models.JournalCommitted}, f.journalStatuses(t))
	require.Len(t, completed, 1)

	svc.Reset()
	assert.Equal(t, services.PhaseIdle, svc.State().Phase)
}

func TestCheckoutInsufficientStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	short := models.Product{ID: "p2", Name: "Miel de Abeja Orgánica", Price: 4500, Stock: 1}
	products := newFakeProducts(p1, short)
	svc := f.service(products)

	f.add(t, p1, 1)
	f.add(t, short, 2)

	order, err := svc.Checkout(ctx, "u1", "x")
	assert.Nil(t, order)

	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Miel de Abeja Orgánica", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Empty(t, products.updates, "no stock may be written when any line is short")
	assert.Equal(t, 10, products.stock("p1"))

	history, err := f.orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	state := svc.State()
	assert.Equal(t, services.PhaseError, state.Phase)
	assert.Contains(t, state.Reason, "Miel de Abeja Orgánica")
	assert.Empty(t, f.journalStatuses(t))
}

func TestCheckoutEmptyCartIsSilent(t *testing.T) {
	f := newCheckoutFixture(t)
	svc := f.service(newFakeProducts())

	_, err := svc.Checkout(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	assert.Equal(t, services.PhaseIdle, svc.State().Phase)
}

func TestCheckoutUnknownProductFailsValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	svc := f.service(newFakeProducts())
	f.add(t, p1, 1)

	_, err := svc.Checkout(context.Background(), "u1", "x")

	var cerr *services.CheckoutError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "validate", cerr.Phase)
	assert.Equal(t, services.PhaseError, svc.State().Phase)
}

func TestCheckoutStockUpdateFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	a := models.Product{ID: "a", Name: "Manzanas Fuji", Price: 1200, Stock: 5}
	b := models.Product{ID: "b", Name: "Yogurt Natural", Price: 1800, Stock: 5}
	f.add(t, a, 1)
	f.add(t, b, 1)

	products := &mockProducts{}
	products.On("Product", mock.Anything, "a").Return(a, nil)
	products.On("Product", mock.Anything, "b").Return(b, nil)
	products.On("UpdateStock", mock.Anything, "a", 4).Return(a, nil).Once()
	products.On("UpdateStock", mock.Anything, "b", 4).Return(models.Product{}, errors.New("HTTP 500: no details")).Once()

	svc := f.service(products)
	_, err := svc.Checkout(ctx, "u1", "x")

	var commitErr *services.CheckoutCommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, services.StepUpdateStock, commitErr.Step)
	require.Len(t, commitErr.Decremented, 1)
	assert.Equal(t, "a", commitErr.Decremented[0].ProductID)
	assert.Contains(t, err.Error(), "stock already updated for Manzanas Fuji")
	products.AssertExpectations(t)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	history, err := f.orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Equal(t, []models.JournalStatus{models.JournalFailed}, f.journalStatuses(t))
}

func TestCheckoutOrderLineFailureRollsBackAndKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.add(t, p1, 2)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_order_lines", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_lines" {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	}))

	svc := f.service(newFakeProducts(p1))
	_, err := svc.Checkout(ctx, "u1", "x")

	var commitErr *services.CheckoutCommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, services.StepRecordOrder, commitErr.Step)
	assert.ErrorIs(t, err, repositories.ErrPersistence)

	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	assert.Equal(t, []models.JournalStatus{models.JournalFailed}, f.journalStatuses(t))
}

func TestOrderHistoryIsPerUser(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	products := newFakeProducts(p1)
	svc := f.service(products)

	f.add(t, p1, 1)
	_, err := svc.Checkout(ctx, "u1", "x")
	require.NoError(t, err)
	svc.Reset()

	f.add(t, p1, 3)
	_, err = svc.Checkout(ctx, "u2", "y")
	require.NoError(t, err)

	u1, err := f.orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	u2, err := f.orders.OrdersForUser(ctx, "u2")
	require.NoError(t, err)

	require.Len(t, u1, 1)
	require.Len(t, u2, 1)
	assert.Equal(t, "u1", u1[0].UserID)
	assert.Equal(t, 3, u2[0].Lines[0].Quantity)
	assert.NotEqual(t, u1[0].ID, u2[0].ID)
	assert.Equal(t, 6, products.stock("p1"))
}

func TestCheckoutIgnoresCallerCancellation(t *testing.T) {
	f := newCheckoutFixture(t)
	svc := f.service(newFakeProducts(p1))
	f.add(t, p1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	order, err := svc.Checkout(ctx, "u1", "x")
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestConcurrentCheckoutsProduceOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	products := newFakeProducts(p1)
	svc := f.service(products)
	f.add(t, p1, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, "u1", "x")
		}(i)
	}
	wg.Wait()

	var ok, empty int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, services.ErrEmptyCart):
			empty++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, empty)
	assert.Equal(t, 8, products.stock("p1"))
}

func TestObserveStateWalksThroughPhases(t *testing.T) {
	f := newCheckoutFixture(t)
	svc := f.service(newFakeProducts(p1))
	f.add(t, p1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	states := svc.ObserveState(ctx)
	assert.Equal(t, services.PhaseIdle, (<-states).Phase)

	_, err := svc.Checkout(context.Background(), "u1", "x")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-states:
			if st.Phase == services.PhaseSuccess {
				return
			}
		case <-deadline:
			t.Fatal("success state never observed")
		}
	}
}

// gatedProducts parks UpdateStock for one product until release is closed.
type gatedProducts struct {
	*fakeProducts
	gate    string
	parked  chan struct{}
	release chan struct{}
}

func (g *gatedProducts) UpdateStock(ctx context.Context, id string, stock int) (models.Product, error) {
	if id == g.gate {
		close(g.parked)
		<-g.release
	}
	return g.fakeProducts.UpdateStock(ctx, id, stock)
}

func TestCheckoutKeepsLinesChangedWhileCommitting(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	p2 := models.Product{ID: "p2", Name: "Miel", Price: 500, Stock: 5}
	products := &gatedProducts{
		fakeProducts: newFakeProducts(p1, p2),
		gate:         "p1",
		parked:       make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := f.service(products)
	f.add(t, p1, 2)

	type result struct {
		order *models.Order
		err   error
	}
	done := make(chan result, 1)
	go func() {
		order, err := svc.Checkout(ctx, "u1", "x")
		done <- result{order, err}
	}()

	<-products.parked
	f.add(t, p2, 1)
	f.add(t, p1, 1)
	close(products.release)

	res := <-done
	require.NoError(t, res.err)

	orders, err := f.orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, 2, orders[0].Lines[0].Quantity)
	assert.Equal(t, 8, products.stock("p1"))

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "p2", lines[1].ProductID)
	assert.Equal(t, 1, lines[1].Quantity)
}
