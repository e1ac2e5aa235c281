package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/store"
)

// EventPublisher publishes transaction change notifications. Satisfied by
// *events.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *events.TransactionEvent) error
}

// TransactionService orchestrates transaction writes across the store and
// the event broker. Publish failures never fail the request; the store is
// the source of truth.
type TransactionService struct {
	store     store.TransactionStore
	publisher EventPublisher
}

func NewTransactionService(st store.TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
	}
}

// Create validates and persists a new transaction, then publishes a change
// event.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.Date = t.Date.UTC()
	t.CreatedAt = time.Now().UTC()

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, t.UserID, t.ID, events.ActionCreated)
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// Update replaces the mutable fields of an existing transaction.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = t.Date.UTC()
	t.CreatedAt = existing.CreatedAt

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, t.UserID, t.ID, events.ActionUpdated)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, userID, id, events.ActionDeleted)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, userID, id, action string) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishTransactionEvent(ctx, events.NewTransactionEvent(userID, id, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"user_id", userID,
			"transaction_id", id,
			"action", action,
			"error", err)
	}
}
