package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huertohogar/huerto/pkg/event"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	bus := event.New()

	var got []string
	bus.Listen("order.recorded", func(p interface{}) { got = append(got, "a:"+p.(string)) })
	bus.Listen("order.recorded", func(p interface{}) { got = append(got, "b:"+p.(string)) })
	bus.Listen("other", func(interface{}) { t.Error("listener on another topic was called") })

	bus.Fire("order.recorded", "7")

	assert.Equal(t, []string{"a:7", "b:7"}, got)
}

func TestPublishKeepsLatestForSlowSubscriber(t *testing.T) {
	bus := event.New()
	sub := bus.Subscribe("cart")
	defer sub.Unsubscribe()

	bus.Publish("cart", 1)
	bus.Publish("cart", 2)
	bus.Publish("cart", 3)

	select {
	case v := <-sub.C():
		assert.Equal(t, 3, v)
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
	}

	select {
	case v := <-sub.C():
		t.Fatalf("stale payload %v delivered", v)
	default:
	}
}

func TestPublishFansOut(t *testing.T) {
	bus := event.New()
	a := bus.Subscribe("cart")
	b := bus.Subscribe("cart")
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	require.Equal(t, 2, bus.Subscribers("cart"))

	bus.Publish("cart", "snapshot")

	assert.Equal(t, "snapshot", <-a.C())
	assert.Equal(t, "snapshot", <-b.C())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := event.New()
	sub := bus.Subscribe("orders:u1")

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, open := <-sub.C()
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers("orders:u1"))

	// Publishing after the last subscriber left must not panic.
	bus.Publish("orders:u1", "late")
}

func TestFlush(t *testing.T) {
	bus := event.New()
	sub := bus.Subscribe("cart")
	bus.Listen("cart", func(interface{}) { t.Error("flushed listener called") })

	bus.Flush()
	bus.Fire("cart", nil)

	_, open := <-sub.C()
	assert.False(t, open)
	sub.Unsubscribe()
}

func TestStreamDeliversInitialThenLatest(t *testing.T) {
	bus := event.New()
	ctx, cancel := context.WithCancel(context.Background())

	sub := bus.Subscribe("cart")
	ch := event.Stream(ctx, sub, []int{})

	assert.Equal(t, []int{}, <-ch)

	bus.Publish("cart", []int{1})
	bus.Publish("cart", []int{1, 2})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if len(v) == 2 {
				cancel()
				_, open := <-ch
				for open {
					_, open = <-ch
				}
				assert.Eventually(t, func() bool { return bus.Subscribers("cart") == 0 }, time.Second, 10*time.Millisecond)
				return
			}
		case <-deadline:
			t.Fatal("latest value never delivered")
		}
	}
}
