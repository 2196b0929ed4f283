package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/runnerpool/internal/webhook"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func delivery(id, action string, at time.Time) webhook.Delivery {
	return webhook.Delivery{
		ID: id,
		Event: &webhook.WorkflowJobEvent{
			Action: action,
			WorkflowJob: &webhook.WorkflowJob{
				ID:         42,
				RunID:      7,
				Status:     action,
				Labels:     []string{"linux-x64", "self-hosted"},
				Repository: &webhook.Repository{FullName: "octo/app"},
			},
		},
		ReceivedAt: at,
	}
}

func TestOpenBootstrapsSchema(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	var name string
	err := j.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='deliveries';").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "deliveries", name)
}

func TestOpenReopensExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = j.Record(ctx, delivery("d-1", "queued", time.Now()))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, d := range []webhook.Delivery{
		delivery("d-1", "queued", base),
		delivery("d-2", "in_progress", base.Add(500*time.Millisecond)),
		delivery("d-3", "completed", base.Add(time.Second)),
	} {
		inserted, err := j.Record(ctx, d)
		require.NoError(t, err, "delivery %d", i)
		assert.True(t, inserted)
	}

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "d-3", entries[0].DeliveryID)
	assert.Equal(t, "d-2", entries[1].DeliveryID)

	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "completed", e.Action)
	assert.EqualValues(t, 42, e.JobID)
	assert.EqualValues(t, 7, e.RunID)
	assert.Equal(t, "octo/app", e.Repository)
	assert.Equal(t, []string{"linux-x64", "self-hosted"}, e.Labels)
	assert.True(t, e.ReceivedAt.Equal(base.Add(time.Second)))

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordDuplicateDelivery(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()

	inserted, err := j.Record(ctx, delivery("dup", "queued", time.Now()))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = j.Record(ctx, delivery("dup", "queued", time.Now()))
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordWithoutIDOrTime(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()

	require.NoError(t, j.HandleEvent(ctx, delivery("", "queued", time.Time{})))
	require.NoError(t, j.HandleEvent(ctx, delivery("", "queued", time.Time{})))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].DeliveryID, entries[1].DeliveryID)
	assert.False(t, entries[0].ReceivedAt.IsZero())
}

func TestRecordRejectsEmptyEvent(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	_, err := j.Record(context.Background(), webhook.Delivery{ID: "x"})
	assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
}

func TestNilJournal(t *testing.T) {
	t.Parallel()

	var j *Journal
	_, err := j.Recent(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, j.Close())
}
