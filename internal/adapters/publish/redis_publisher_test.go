package publish

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPublisherStoresAndAnnounces(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	p, err := NewRedisPublisher(ctx, "redis://"+mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, DefaultStateChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := []byte(`{"tick":7}`)
	if err := p.Publish(ctx, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := mr.Get(DefaultStateKey)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if got != string(payload) {
		t.Fatalf("stored = %s, want %s", got, payload)
	}
	if ttl := mr.TTL(DefaultStateKey); ttl != time.Minute {
		t.Fatalf("ttl = %s, want 1m", ttl)
	}

	msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := ps.ReceiveMessage(msgCtx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Payload != string(payload) {
		t.Fatalf("announced = %s, want %s", msg.Payload, payload)
	}
}

func TestRedisPublisherReportsServerLoss(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	p, err := NewRedisPublisher(ctx, "redis://"+mr.Addr(), 0)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()

	mr.Close()
	if err := p.Publish(ctx, []byte(`{}`)); err == nil {
		t.Fatalf("expected publish to a stopped server to fail")
	}
}

func TestNewRedisPublisherRejectsBadURL(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), "not a url", 0); err == nil {
		t.Fatalf("expected bad url to fail")
	}
}
