package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo implements Repository in memory with the same claim semantics as
// the Postgres store: claiming increments attempts, sent rows and rows at
// the attempt limit are never selected.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Notification

	claimErr error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]Notification)}
}

func (r *memRepo) add(n Notification) Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	n.CreatedAt = time.Now()
	r.rows[n.ID] = n
	return n
}

func (r *memRepo) get(id uuid.UUID) Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *memRepo) Create(_ context.Context, n Notification) (*Notification, error) {
	n.ID = uuid.New()
	n.Status = StatusPending
	stored := r.add(n)
	return &stored, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return &n, nil
}

func (r *memRepo) List(_ context.Context, f ListFilter) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.rows {
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) ClaimDue(_ context.Context, now time.Time, batch, maxAttempts int) ([]Notification, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []Notification
	for _, n := range r.rows {
		if n.Status == StatusSent || n.Attempts >= maxAttempts {
			continue
		}
		if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
			continue
		}
		due = append(due, n)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > batch {
		due = due[:batch]
	}

	for i, n := range due {
		n.Attempts++
		r.rows[n.ID] = n
		due[i] = n
	}
	return due, nil
}

func (r *memRepo) MarkSent(_ context.Context, id uuid.UUID, providerMsgID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = StatusSent
	n.ProviderMsgID = &providerMsgID
	n.SentAt = &at
	n.ErrorDetail = nil
	r.rows[id] = n
	return nil
}

func (r *memRepo) MarkFailed(_ context.Context, id uuid.UUID, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = StatusFailed
	n.ErrorDetail = &errorDetail
	r.rows[id] = n
	return nil
}

func (r *memRepo) Reset(_ context.Context, id uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n.Status = StatusPending
	n.Attempts = 0
	n.ProviderMsgID = nil
	n.ErrorDetail = nil
	n.SentAt = nil
	r.rows[id] = n
	return &n, nil
}

func (r *memRepo) Mark(_ context.Context, id uuid.UUID, m ManualMark) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	if m.Sent {
		n.Status = StatusSent
		now := time.Now()
		n.SentAt = &now
	} else {
		n.Status = StatusFailed
	}
	n.ProviderMsgID = m.ProviderMsgID
	n.ErrorDetail = m.ErrorDetail
	r.rows[id] = n
	return &n, nil
}

// scriptedSender fails the phones listed in failFor and succeeds otherwise.
type scriptedSender struct {
	mu      sync.Mutex
	failFor map[string]error
	sent    []string
}

func (s *scriptedSender) Send(_ context.Context, phone, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[phone]; ok {
		return "", err
	}
	s.sent = append(s.sent, phone)
	return "wamid.test_" + phone, nil
}

func testWorker(repo Repository, sender *scriptedSender, maxAttempts int) *Worker {
	return NewWorker(repo, sender, WorkerConfig{
		Interval:    time.Minute,
		BatchSize:   10,
		MaxAttempts: maxAttempts,
		RunTimeout:  time.Minute,
	}, zerolog.Nop())
}

func TestProcessBatch_SuccessIsTerminal(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{}
	w := testWorker(repo, sender, 3)

	n := repo.add(Notification{Phone: "+5215511111111", Message: "hola"})

	sent, failed, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)

	got := repo.get(n.ID)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.ProviderMsgID)
	require.NotNil(t, got.SentAt)
	assert.Nil(t, got.ErrorDetail)

	// A sent row is never picked up again.
	sent, failed, err = w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Equal(t, 1, repo.get(n.ID).Attempts)
}

func TestProcessBatch_FailureRetriesUntilExhausted(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{failFor: map[string]error{"+5215522222222": errors.New("provider 5xx")}}
	w := testWorker(repo, sender, 3)

	n := repo.add(Notification{Phone: "+5215522222222", Message: "hola"})

	for i := 1; i <= 3; i++ {
		sent, failed, err := w.ProcessBatch(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Equal(t, 1, failed, "cycle %d", i)

		got := repo.get(n.ID)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, i, got.Attempts)
		require.NotNil(t, got.ErrorDetail)
		assert.Equal(t, "provider 5xx", *got.ErrorDetail)
	}

	// Attempts exhausted: the row is no longer selected.
	sent, failed, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)

	got := repo.get(n.ID)
	assert.Equal(t, 3, got.Attempts)
	assert.True(t, got.Exhausted(3))
}

func TestProcessBatch_RecoveryAfterTransientFailure(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{failFor: map[string]error{"+5215533333333": errors.New("timeout")}}
	w := testWorker(repo, sender, 3)

	n := repo.add(Notification{Phone: "+5215533333333", Message: "hola"})

	_, failed, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, failed)

	// Provider recovers.
	sender.mu.Lock()
	delete(sender.failFor, "+5215533333333")
	sender.mu.Unlock()

	sent, _, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	got := repo.get(n.ID)
	assert.Equal(t, StatusSent, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Nil(t, got.ErrorDetail, "a successful send clears the previous failure detail")
}

func TestProcessBatch_ScheduledForGatesEligibility(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{}
	w := testWorker(repo, sender, 3)

	now := time.Now()
	tomorrow := now.Add(24 * time.Hour)
	n := repo.add(Notification{Phone: "+5215544444444", Message: "reminder", ScheduledFor: &tomorrow})

	sent, failed, err := w.ProcessBatch(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, failed)
	assert.Equal(t, 0, repo.get(n.ID).Attempts)

	// Once the clock passes scheduled_for the row goes out.
	sent, _, err = w.ProcessBatch(context.Background(), tomorrow.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, StatusSent, repo.get(n.ID).Status)
}

func TestProcessBatch_BatchSizeBoundsClaim(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{}
	w := NewWorker(repo, sender, WorkerConfig{
		Interval:    time.Minute,
		BatchSize:   2,
		MaxAttempts: 3,
	}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		repo.add(Notification{Phone: "+521555000000" + string(rune('0'+i)), Message: "hola"})
	}

	sent, _, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, _, err = w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, _, err = w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestProcessBatch_ClaimErrorIsReturned(t *testing.T) {
	repo := newMemRepo()
	repo.claimErr = errors.New("connection refused")
	w := testWorker(repo, &scriptedSender{}, 3)

	_, _, err := w.ProcessBatch(context.Background(), time.Now())
	assert.ErrorContains(t, err, "connection refused")
}

func TestReset_RevivesExhaustedRow(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{failFor: map[string]error{"+5215566666666": errors.New("unreachable")}}
	w := testWorker(repo, sender, 3)

	n := repo.add(Notification{Phone: "+5215566666666", Message: "hola"})
	for i := 0; i < 3; i++ {
		_, _, err := w.ProcessBatch(context.Background(), time.Now())
		require.NoError(t, err)
	}
	require.True(t, repo.get(n.ID).Exhausted(3))

	reset, err := repo.Reset(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, reset.Status)
	assert.Zero(t, reset.Attempts)
	assert.Nil(t, reset.ErrorDetail)

	sender.mu.Lock()
	delete(sender.failFor, "+5215566666666")
	sender.mu.Unlock()

	sent, _, err := w.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, StatusSent, repo.get(n.ID).Status)
}

func TestWorkerRun_StopsOnContextCancel(t *testing.T) {
	repo := newMemRepo()
	sender := &scriptedSender{}
	n := repo.add(Notification{Phone: "+5215577777777", Message: "hola"})

	w := NewWorker(repo, sender, WorkerConfig{
		Interval:    10 * time.Millisecond,
		BatchSize:   10,
		MaxAttempts: 3,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// The startup cycle dispatches the pending row.
	require.Eventually(t, func() bool {
		return repo.get(n.ID).Status == StatusSent
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
