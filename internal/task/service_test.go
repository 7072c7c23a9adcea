package task

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "TaskHub/internal/errors"
	"TaskHub/internal/events"
)

func newTestService(t *testing.T) (*Service, *events.MemoryPublisher) {
	t.Helper()
	pub := events.NewMemoryPublisher(0)
	svc := NewService(NewMemoryStore(), pub)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub
}

func TestServiceCreateValidatesTitle(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, TaskCreate{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, CodeTaskValidation, xerrors.CodeOf(err))
	assert.Equal(t, xerrors.KindValidation, xerrors.KindOf(err))
	assert.Equal(t, "title must not be empty", xerrors.MessageOf(err))
	assert.Zero(t, svc.Count(ctx))
	assert.Empty(t, pub.Events())

	task, err := svc.Create(ctx, TaskCreate{Title: "Ship it", Description: "soon"})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Empty(t, task.Tags)
	assert.False(t, task.Completed)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	got := pub.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeTaskCreated, got[0].Type)
	assert.Equal(t, []string{task.ID.String()}, got[0].TaskIDs)
}

func TestServiceRejectsMalformedID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, ErrInvalidID))
	assert.Equal(t, xerrors.KindInvalidID, xerrors.KindOf(err))

	_, err = svc.Get(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrTaskNotFound))
	assert.Equal(t, xerrors.KindNotFound, xerrors.KindOf(err))

	assert.ErrorIs(t, svc.Delete(ctx, "nope"), ErrInvalidID)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.NewString()), ErrTaskNotFound)
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, TaskCreate{Title: "draft", Description: "d"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, task.ID.String(), TaskUpdate{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "draft", updated.Title)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	_, err = svc.Update(ctx, task.ID.String(), TaskUpdate{Title: strPtr(" ")})
	assert.Equal(t, CodeTaskValidation, xerrors.CodeOf(err))

	still, err := svc.Get(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "draft", still.Title)
}

func TestServiceSetTagsNormalizesAndValidates(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	task, err := svc.Create(ctx, TaskCreate{Title: "tagged"})
	require.NoError(t, err)

	updated, err := svc.SetTags(ctx, task.ID.String(), []string{"Feature", "feature", "Backend"})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature", "backend"}, updated.Tags)

	_, err = svc.SetTags(ctx, task.ID.String(), []string{"valid", "   "})
	require.Error(t, err)
	assert.Equal(t, "tags must not contain empty entries", xerrors.MessageOf(err))

	long := make([]byte, MaxTagLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.SetTags(ctx, task.ID.String(), []string{string(long)})
	require.Error(t, err)
	assert.Equal(t, "tag too long (max 64 chars)", xerrors.MessageOf(err))

	tags, err := svc.GetTags(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"feature", "backend"}, tags)

	types := []events.Type{}
	for _, e := range pub.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{events.TypeTaskCreated, events.TypeTaskTagsSet}, types)
}

func TestServiceSearchByTag(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, TaskCreate{Title: "a"})
	b, _ := svc.Create(ctx, TaskCreate{Title: "b"})
	_, _ = svc.Create(ctx, TaskCreate{Title: "untagged"})
	_, err := svc.SetTags(ctx, a.ID.String(), []string{"Ops"})
	require.NoError(t, err)
	_, err = svc.SetTags(ctx, b.ID.String(), []string{"dev", "ops"})
	require.NoError(t, err)

	result := svc.SearchByTag(ctx, "OPS")
	assert.Equal(t, 2, result.Total)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, []uuid.UUID{result.Items[0].ID, result.Items[1].ID})

	assert.Zero(t, svc.SearchByTag(ctx, "").Total)
}

func TestServicePriority(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	task, _ := svc.Create(ctx, TaskCreate{Title: "p"})

	p, err := svc.GetPriority(ctx, task.ID.String())
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = svc.SetPriority(ctx, task.ID.String(), "Critical")
	require.NoError(t, err)

	_, err = svc.SetPriority(ctx, task.ID.String(), "urgent")
	assert.Equal(t, CodeInvalidPriority, xerrors.CodeOf(err))

	p, _ = svc.GetPriority(ctx, task.ID.String())
	assert.Equal(t, PriorityCritical, p)

	found, err := svc.SearchByPriority(ctx, "critical")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)

	none, err := svc.SearchByPriority(ctx, "low")
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Items)

	_, err = svc.SearchByPriority(ctx, "")
	assert.Error(t, err)
}

func TestServiceBulkDeleteSkipsInvalidIDs(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, TaskCreate{Title: "a"})
	b, _ := svc.Create(ctx, TaskCreate{Title: "b"})
	c, _ := svc.Create(ctx, TaskCreate{Title: "c"})

	deleted := svc.BulkDelete(ctx, []string{a.ID.String(), "garbage", b.ID.String(), uuid.NewString()})
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, svc.Count(ctx))

	_, err := svc.Get(ctx, c.ID.String())
	assert.NoError(t, err)

	last := pub.Events()[len(pub.Events())-1]
	assert.Equal(t, events.TypeTasksDeleted, last.Type)
	assert.Equal(t, 2, last.Count)

	assert.Zero(t, svc.BulkDelete(ctx, nil))
}

func TestServiceListAndStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		task, err := svc.Create(ctx, TaskCreate{Title: "t"})
		require.NoError(t, err)
		if i < 5 {
			_, err = svc.Update(ctx, task.ID.String(), TaskUpdate{Completed: boolPtr(true)})
			require.NoError(t, err)
		}
	}

	page, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, DefaultPageSize)

	page, err = svc.List(ctx, WithCompleted(true), WithPageSize(2), WithPage(3))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 1)

	stats := svc.Stats(ctx)
	assert.Equal(t, 25, stats.Total)
	assert.Equal(t, 5, stats.Completed)
	assert.Equal(t, 20, stats.Incomplete)
}

func TestServiceConcurrentCreates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[uuid.UUID]struct{}{}
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := svc.Create(ctx, TaskCreate{Title: "c"})
			if err != nil {
				return
			}
			mu.Lock()
			ids[task.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 100)
	assert.Equal(t, 100, svc.Count(ctx))
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, events.Event) error { return errors.New("down") }
func (brokenPublisher) Close() error { return nil }

func TestServicePublishFailureDoesNotFailMutation(t *testing.T) {
	svc := NewService(NewMemoryStore(), brokenPublisher{})
	task, err := svc.Create(context.Background(), TaskCreate{Title: "still saved"})
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), task.ID.String())
	require.NoError(t, err)
}

func TestServiceWithoutStore(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Create(context.Background(), TaskCreate{Title: "x"})
	assert.Equal(t, xerrors.CodeInitializationFailure, xerrors.CodeOf(err))
	assert.Zero(t, svc.Count(context.Background()))
}
