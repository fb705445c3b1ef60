package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-insights/internal/models"
)

// FeedbackRepository is the local ledger of suggestion feedback awaiting delivery.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create records a feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.SuggestionFeedback) error {
	const query = `INSERT INTO suggestion_feedback (id, suggestion_id, user_id, useful, delivered, created_at, delivered_at)
VALUES (:id, :suggestion_id, :user_id, :useful, :delivered, :created_at, :delivered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("insert suggestion feedback: %w", err)
	}
	return nil
}

// MarkDelivered flags an entry as accepted by the academic API.
func (r *FeedbackRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE suggestion_feedback SET delivered = TRUE, delivered_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark feedback delivered: %w", err)
	}
	return nil
}
