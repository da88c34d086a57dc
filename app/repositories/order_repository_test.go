package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/pkg/event"
)

func sampleLines() []models.OrderLine {
	return []models.OrderLine{
		{ProductID: "prod_1", ProductName: "Manzanas Fuji", Quantity: 3, UnitPrice: 1200},
		{ProductID: "prod_5", ProductName: "Miel de Abeja Orgánica", Quantity: 1, UnitPrice: 4500},
	}
}

func TestRecordOrderAssignsIDsAndStoresLines(t *testing.T) {
	ctx := context.Background()
	bus := event.New()
	orders := repositories.NewOrderRepository(openStore(t), bus)

	var fired []models.Order
	bus.Listen(repositories.TopicOrderRecorded, func(p interface{}) { fired = append(fired, p.(models.Order)) })

	order := &models.Order{UserID: "u1", Subtotal: 8100, Tax: 1539, Total: 9639, ShippingAddress: "Av. Siempre Viva 742"}
	require.NoError(t, orders.RecordOrder(ctx, order, sampleLines()))

	assert.NotZero(t, order.ID)
	require.Len(t, order.Lines, 2)
	for _, l := range order.Lines {
		assert.NotZero(t, l.ID)
		assert.Equal(t, order.ID, l.OrderID)
	}
	require.Len(t, fired, 1)
	assert.Equal(t, order.ID, fired[0].ID)

	list, err := orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Lines, 2)
	assert.Equal(t, 3, list[0].Lines[0].Quantity)
	assert.Equal(t, 4500.0, list[0].Lines[1].UnitPrice)
	assert.Equal(t, 9639.0, list[0].Total)
}

func TestRecordOrderWithoutLines(t *testing.T) {
	orders := repositories.NewOrderRepository(openStore(t), event.New())
	err := orders.RecordOrder(context.Background(), &models.Order{UserID: "u1"}, nil)
	assert.ErrorIs(t, err, repositories.ErrEmptyOrder)
}

func TestOrdersForUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	orders := repositories.NewOrderRepository(openStore(t), event.New())

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base, base.Add(2 * time.Hour), base.Add(time.Hour)} {
		o := &models.Order{UserID: "u1", PlacedAt: at, Total: float64(i), ShippingAddress: "x"}
		require.NoError(t, orders.RecordOrder(ctx, o, sampleLines()[:1]))
	}
	require.NoError(t, orders.RecordOrder(ctx, &models.Order{UserID: "u2", PlacedAt: base, ShippingAddress: "y"}, sampleLines()[:1]))

	list, err := orders.OrdersForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []float64{1, 2, 0}, []float64{list[0].Total, list[1].Total, list[2].Total})

	none, err := orders.OrdersForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordOrderIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	orders := repositories.NewOrderRepository(db, event.New())

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_order_lines", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_lines" {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	}))

	order := &models.Order{UserID: "u1", Total: 1, ShippingAddress: "x"}
	err := orders.RecordOrder(ctx, order, sampleLines())
	require.ErrorIs(t, err, repositories.ErrPersistence)
	assert.Zero(t, order.ID)

	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.OrderLine{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestObserveOrdersForUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orders := repositories.NewOrderRepository(openStore(t), event.New())

	stream, err := orders.ObserveOrdersForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, <-stream)

	require.NoError(t, orders.RecordOrder(ctx, &models.Order{UserID: "u2", ShippingAddress: "y"}, sampleLines()))
	require.NoError(t, orders.RecordOrder(ctx, &models.Order{UserID: "u1", ShippingAddress: "x"}, sampleLines()))

	got := waitFor(t, stream, func(o []models.Order) bool { return len(o) > 0 })
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Len(t, got[0].Lines, 2)
}
