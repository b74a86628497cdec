package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activitystats/internal/domain"
)

func TestCursorAfterOrdersByStartThenID(t *testing.T) {
	at := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	cursor := &domain.Cursor{StartTime: at, ID: "m"}

	require.True(t, cursor.After(domain.ActivityRecord{StartTime: at, ID: "n"}))
	require.False(t, cursor.After(domain.ActivityRecord{StartTime: at, ID: "m"}))
	require.False(t, cursor.After(domain.ActivityRecord{StartTime: at, ID: "a"}))
	require.True(t, cursor.After(domain.ActivityRecord{StartTime: at.Add(time.Second), ID: "a"}))
	require.False(t, cursor.After(domain.ActivityRecord{StartTime: at.Add(-time.Second), ID: "z"}))

	var first *domain.Cursor
	require.True(t, first.After(domain.ActivityRecord{ID: "anything"}))
}
