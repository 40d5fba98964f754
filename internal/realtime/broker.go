// Package realtime fans session change notifications out to teacher
// dashboards. Semantics are deliberately thin: events are eventually
// delivered, carry no state diff, and are never replayed. A consumer that
// subscribes late must re-fetch instead.
package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Posologia-Edu/prova-facil/internal/exam"
)

// EventRepo appends change events to the audit log table.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, ev exam.Event) error {
	data, _ := json.Marshal(ev)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		ev.Type, ev.SessionID, string(data), time.Now().Unix())
	return err
}

// Broker is the in-process fan-out, keyed by publication id. Slow consumers
// drop events rather than block producers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan exam.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan exam.Event]struct{}{}}
}

// Subscribe returns a channel of events for one publication and a cancel
// function that must be called when the consumer goes away.
func (b *Broker) Subscribe(publicationID string) (<-chan exam.Event, func()) {
	ch := make(chan exam.Event, 16)
	b.mu.Lock()
	set, ok := b.subs[publicationID]
	if !ok {
		set = map[chan exam.Event]struct{}{}
		b.subs[publicationID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[publicationID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, publicationID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Broker) publish(ev exam.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.PublicationID] {
		select {
		case ch <- ev:
		default:
			// Consumer is behind; it will re-fetch on the next event anyway.
		}
	}
}

// Hub combines durable append and live fan-out; it is the exam.Events
// implementation wired at the composition root.
type Hub struct {
	repo   *EventRepo
	broker *Broker
	log    *zap.Logger
}

func NewHub(repo *EventRepo, broker *Broker, log *zap.Logger) *Hub {
	return &Hub{repo: repo, broker: broker, log: log}
}

func (h *Hub) Publish(ctx context.Context, ev exam.Event) {
	if h.repo != nil {
		if err := h.repo.Append(ctx, ev); err != nil {
			h.log.Warn("event log append failed", zap.Error(err))
		}
	}
	h.broker.publish(ev)
}

func (h *Hub) Broker() *Broker { return h.broker }
