package stream

import (
	"testing"

	"activity-events/domain"
)

func TestBrokerFiltersBySubscription(t *testing.T) {
	b := NewBroker(4)
	all, cancelAll := b.Subscribe("", "")
	defer cancelAll()
	byCorrelation, cancelCorrelation := b.Subscribe("c1", "")
	defer cancelCorrelation()
	byReference, cancelReference := b.Subscribe("", "ORD-2")
	defer cancelReference()

	b.Publish(domain.Notification{CorrelationID: "c1", Reference: "ORD-1"})
	b.Publish(domain.Notification{CorrelationID: "c2", Reference: "ORD-2"})

	if got := len(all); got != 2 {
		t.Fatalf("expected 2 notifications for unfiltered subscriber, got %d", got)
	}
	if got := len(byCorrelation); got != 1 {
		t.Fatalf("expected 1 notification for c1, got %d", got)
	}
	if n := <-byCorrelation; n.CorrelationID != "c1" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n := <-byReference; n.Reference != "ORD-2" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("", "")
	defer cancel()

	b.Publish(domain.Notification{CorrelationID: "c1", Reference: "ORD-1"})
	b.Publish(domain.Notification{CorrelationID: "c2", Reference: "ORD-1"})

	if got := len(ch); got != 1 {
		t.Fatalf("expected buffer of 1, got %d", got)
	}
	if n := <-ch; n.CorrelationID != "c1" {
		t.Fatalf("expected the first notification to be kept, got %+v", n)
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("", "")
	if b.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	b.Publish(domain.Notification{CorrelationID: "c1", Reference: "ORD-1"})
	if len(ch) != 0 {
		t.Fatalf("cancelled subscriber received a notification")
	}
}
