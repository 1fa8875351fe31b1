package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func TestOutboxRepositoryIntegration_Flow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeProduct,
		AggregateID:   "prod-1",
		EventType:     domain.EventProductStockDebited,
		Payload:       []byte(`{"quantity":2}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err = repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending after sent, got %d", len(pending))
	}
}

func TestOutboxRepositoryIntegration_MarkMissing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
	if err := repo.MarkFailed("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}
