package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/interfaces"
)

func TestSubscribeRejectsNilHandler(t *testing.T) {
	service := NewService(arbor.NewLogger())

	if err := service.Subscribe(interfaces.EventJobCreated, nil); err == nil {
		t.Error("Expected error for nil handler")
	}
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	service := NewService(arbor.NewLogger())

	var wg sync.WaitGroup
	wg.Add(2)
	var count int32

	handler := func(ctx context.Context, event interfaces.Event) error {
		defer wg.Done()
		atomic.AddInt32(&count, 1)
		if event.Type != interfaces.EventJobUpdated {
			t.Errorf("Unexpected event type: %s", event.Type)
		}
		return nil
	}

	if err := service.Subscribe(interfaces.EventJobUpdated, handler); err != nil {
		t.Fatal(err)
	}
	if err := service.Subscribe(interfaces.EventJobUpdated, handler); err != nil {
		t.Fatal(err)
	}

	err := service.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventJobUpdated,
		Payload: map[string]interface{}{"job_id": "job-1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Handlers were not invoked")
	}

	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("Expected 2 deliveries, got %d", count)
	}
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	service := NewService(arbor.NewLogger())

	if err := service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobCreated}); err != nil {
		t.Errorf("Publish with no subscribers should succeed: %v", err)
	}
}

func TestPublishSyncSurfacesHandlerErrors(t *testing.T) {
	service := NewService(arbor.NewLogger())

	failing := func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler broke")
	}
	succeeding := func(ctx context.Context, event interfaces.Event) error {
		return nil
	}

	if err := service.Subscribe(interfaces.EventJobCreated, failing); err != nil {
		t.Fatal(err)
	}
	if err := service.Subscribe(interfaces.EventJobCreated, succeeding); err != nil {
		t.Fatal(err)
	}

	err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCreated})
	if err == nil {
		t.Fatal("Expected error from failing handler")
	}
}

func TestPublishSyncWaitsForHandlers(t *testing.T) {
	service := NewService(arbor.NewLogger())

	var done int32
	handler := func(ctx context.Context, event interfaces.Event) error {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
		return nil
	}
	if err := service.Subscribe(interfaces.EventJobUpdated, handler); err != nil {
		t.Fatal(err)
	}

	if err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobUpdated}); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&done) != 1 {
		t.Error("PublishSync returned before the handler finished")
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	service := NewService(arbor.NewLogger())

	called := int32(0)
	handler := func(ctx context.Context, event interfaces.Event) error {
		atomic.AddInt32(&called, 1)
		return nil
	}
	if err := service.Subscribe(interfaces.EventJobCreated, handler); err != nil {
		t.Fatal(err)
	}
	if err := service.Close(); err != nil {
		t.Fatal(err)
	}

	if err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobCreated}); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&called) != 0 {
		t.Error("Handler invoked after Close")
	}
}
