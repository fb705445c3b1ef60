package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-insights/internal/models"
)

// SettingsRepository persists per-user session settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get fetches the settings of a user. It returns sql.ErrNoRows when none were saved.
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*models.Settings, error) {
	const query = `SELECT user_id, risk_threshold, suggestion_count, theme, language, suggestion_alerts, validation_alerts, updated_at
FROM session_settings WHERE user_id = $1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert inserts or replaces the settings of a user.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	const query = `INSERT INTO session_settings (user_id, risk_threshold, suggestion_count, theme, language, suggestion_alerts, validation_alerts, updated_at)
VALUES (:user_id, :risk_threshold, :suggestion_count, :theme, :language, :suggestion_alerts, :validation_alerts, :updated_at)
ON CONFLICT (user_id)
DO UPDATE SET risk_threshold = EXCLUDED.risk_threshold, suggestion_count = EXCLUDED.suggestion_count,
              theme = EXCLUDED.theme, language = EXCLUDED.language,
              suggestion_alerts = EXCLUDED.suggestion_alerts, validation_alerts = EXCLUDED.validation_alerts,
              updated_at = EXCLUDED.updated_at`
	settings.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert session settings: %w", err)
	}
	return nil
}
