package check

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks AgentStore,HistoryStore,Notifier,Locker

import (
	"context"
	"time"

	"licensecheck/internal/notify"
)

// AgentStore persists agents. Get returns sentinel.ErrNotFound for unknown ids.
type AgentStore interface {
	Get(ctx context.Context, id string) (*Agent, error)
	Save(ctx context.Context, agent *Agent) error
	ListMonitored(ctx context.Context) ([]*Agent, error)
}

// HistoryStore is the append-only check log. ListByAgent returns newest first.
type HistoryStore interface {
	Append(ctx context.Context, record *CheckRecord) error
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*CheckRecord, error)
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, alert notify.Alert) error
}

// Locker guards the sweep so only one instance runs it at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
