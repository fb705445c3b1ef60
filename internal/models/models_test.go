package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationStateIsOneWay(t *testing.T) {
	next, err := GradePending.Transition(GradeValidated)
	require.NoError(t, err)
	assert.Equal(t, GradeValidated, next)

	same, err := GradeValidated.Transition(GradeValidated)
	require.NoError(t, err)
	assert.Equal(t, GradeValidated, same)

	back, err := GradeValidated.Transition(GradePending)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, GradeValidated, back)

	_, err = ValidationState("rejected").Transition(GradeValidated)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestNotificationMarkReadKeepsFirstReadTime(t *testing.T) {
	first := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	n := Notification{ID: "1", State: Unread}.MarkRead(first)
	assert.True(t, n.IsRead())
	require.NotNil(t, n.ReadAt)

	again := n.MarkRead(first.Add(time.Hour))
	assert.Equal(t, first, *again.ReadAt)

	_, err := Read.Transition(Unread)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestFlexibleID(t *testing.T) {
	var payload struct {
		A FlexibleID `json:"a"`
		B FlexibleID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "x-7"}`), &payload))
	assert.Equal(t, FlexibleID("42"), payload.A)
	assert.Equal(t, FlexibleID("x-7"), payload.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &payload))
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelExpert, LevelFor(16))
	assert.Equal(t, LevelIntermediate, LevelFor(12))
	assert.Equal(t, LevelBeginner, LevelFor(10))
	assert.Equal(t, LevelCritical, LevelFor(9.99))
}

func TestRolesAndNames(t *testing.T) {
	assert.True(t, RoleTeacher.Valid())
	assert.False(t, UserRole("parent").Valid())
	assert.Equal(t, "Awa Diallo", Student{FirstName: "Awa", LastName: "Diallo"}.FullName())
	assert.Equal(t, "Diallo", Student{LastName: "Diallo"}.FullName())
	assert.Equal(t, "unknown", Difficulty(9).String())
}
