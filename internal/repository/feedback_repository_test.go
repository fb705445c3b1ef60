package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/models"
)

func TestFeedbackRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO suggestion_feedback").
		WithArgs("fb-1", "7:9", "42", true, false, created, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.SuggestionFeedback{
		ID: "fb-1", SuggestionID: "7:9", UserID: "42", Useful: true, CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryMarkDelivered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	at := time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE suggestion_feedback SET delivered = TRUE").
		WithArgs("fb-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDelivered(context.Background(), "fb-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryMarkDeliveredError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeedbackRepository(db)
	mock.ExpectExec("UPDATE suggestion_feedback").
		WillReturnError(errors.New("connection reset"))

	err := repo.MarkDelivered(context.Background(), "fb-1", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark feedback delivered")
}
