package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/finance"
	"github.com/riskibarqy/career-engine/internal/domain/jobscheduler"
	"github.com/riskibarqy/career-engine/internal/domain/notification"
	"github.com/riskibarqy/career-engine/internal/domain/season"
)

type NotificationRepository struct {
	s *Store
}

func NewNotificationRepository(s *Store) *NotificationRepository {
	return &NotificationRepository{s: s}
}

func (r *NotificationRepository) Create(_ context.Context, n notification.Notification) error {
	r.s.write(func(t *tables) {
		t.notifications[n.GameID] = append(t.notifications[n.GameID], n)
	})
	return nil
}

func (r *NotificationRepository) Exists(_ context.Context, gameID string, typ notification.Type, dedupeKey string, since time.Time) (bool, error) {
	found := false
	r.s.read(func(t *tables) {
		for _, n := range t.notifications[gameID] {
			if n.Type == typ && n.DedupeKey == dedupeKey && !n.CreatedAt.Before(since) {
				found = true
				return
			}
		}
	})
	return found, nil
}

// ListByGame returns the newest notifications first.
func (r *NotificationRepository) ListByGame(_ context.Context, gameID string, limit int) ([]notification.Notification, error) {
	var out []notification.Notification
	r.s.read(func(t *tables) {
		all := t.notifications[gameID]
		for i := len(all) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, all[i])
		}
	})
	return out, nil
}

type ArchiveRepository struct {
	s *Store
}

func NewArchiveRepository(s *Store) *ArchiveRepository {
	return &ArchiveRepository{s: s}
}

func (r *ArchiveRepository) Save(_ context.Context, archive season.Archive) error {
	r.s.write(func(t *tables) {
		list := t.archives[archive.GameID]
		for i := range list {
			if list[i].Season == archive.Season {
				list[i] = archive
				return
			}
		}
		t.archives[archive.GameID] = append(list, archive)
	})
	return nil
}

func (r *ArchiveRepository) ListByGame(_ context.Context, gameID string) ([]season.Archive, error) {
	var out []season.Archive
	r.s.read(func(t *tables) {
		out = append(out, t.archives[gameID]...)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out, nil
}

type FinanceRepository struct {
	s *Store
}

func NewFinanceRepository(s *Store) *FinanceRepository {
	return &FinanceRepository{s: s}
}

func (r *FinanceRepository) SaveSnapshot(_ context.Context, snapshot finance.Snapshot) error {
	r.s.write(func(t *tables) {
		list := t.snapshots[snapshot.GameID]
		for i := range list {
			if list[i].Season == snapshot.Season {
				list[i] = snapshot
				return
			}
		}
		t.snapshots[snapshot.GameID] = append(list, snapshot)
	})
	return nil
}

func (r *FinanceRepository) AddIncome(_ context.Context, gameID string, amount int64, _ string) error {
	r.s.write(func(t *tables) {
		g, ok := t.games[gameID]
		if !ok {
			return
		}
		g.Budget += amount
		t.games[gameID] = g
	})
	return nil
}

// Snapshots lists stored projections oldest season first.
func (r *FinanceRepository) Snapshots(_ context.Context, gameID string) ([]finance.Snapshot, error) {
	var out []finance.Snapshot
	r.s.read(func(t *tables) {
		out = append(out, t.snapshots[gameID]...)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out, nil
}

type JobDispatchRepository struct {
	s *Store
}

func NewJobDispatchRepository(s *Store) *JobDispatchRepository {
	return &JobDispatchRepository{s: s}
}

// UpsertEvent keeps the latest status per dispatch id.
func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	r.s.write(func(t *tables) {
		t.dispatches[event.DispatchID] = event
	})
	return nil
}

func (r *JobDispatchRepository) Get(_ context.Context, dispatchID string) (jobscheduler.DispatchEvent, bool, error) {
	var (
		ev jobscheduler.DispatchEvent
		ok bool
	)
	r.s.read(func(t *tables) {
		ev, ok = t.dispatches[dispatchID]
	})
	return ev, ok, nil
}
