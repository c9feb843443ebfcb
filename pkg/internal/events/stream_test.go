package events

import (
	"reflect"
	"testing"
)

func TestStream_PublishInSubscriptionOrder(t *testing.T) {
	var stream Stream[int]
	var order []string

	stream.Subscribe(func(v int) { order = append(order, "first") })
	stream.Subscribe(func(v int) { order = append(order, "second") })
	stream.Publish(1)

	want := []string{"first", "second"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("delivery order = %v, want %v", order, want)
	}
}

func TestStream_CancelStopsDelivery(t *testing.T) {
	var stream Stream[string]
	var got []string

	cancel := stream.Subscribe(func(v string) { got = append(got, v) })
	stream.Publish("one")
	cancel()
	stream.Publish("two")

	if !reflect.DeepEqual(got, []string{"one"}) {
		t.Fatalf("got %v, want [one]", got)
	}
}

func TestStream_CancelIsIdempotent(t *testing.T) {
	var stream Stream[int]
	calls := 0

	cancel := stream.Subscribe(func(int) { calls++ })
	cancel()
	cancel()
	stream.Publish(1)

	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}
