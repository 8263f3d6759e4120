package dispatcher

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/internal/models"
)

// PendingStore holds dispatched commands awaiting acknowledgment. It is shared
// by the dispatcher (writer) and the correlator (reader), so per-key atomicity
// matters: a command must never be partially visible to an ack lookup. Growth
// is bounded by a capacity cap and an age limit, oldest entries evicted first.
type PendingStore struct {
	commands   cmap.ConcurrentMap[string, models.PendingCommand]
	maxEntries int
	ttl        time.Duration
	logger     zerolog.Logger
}

// NewPendingStore creates a bounded pending-command store.
func NewPendingStore(maxEntries int, ttl time.Duration, logger zerolog.Logger) *PendingStore {
	return &PendingStore{
		commands:   cmap.New[models.PendingCommand](),
		maxEntries: maxEntries,
		ttl:        ttl,
		logger:     logger,
	}
}

// Add records a freshly dispatched command, evicting expired and surplus
// entries first.
func (s *PendingStore) Add(cmd models.PendingCommand) {
	s.evict(cmd.SentAt)
	s.commands.Set(cmd.CorrelationID, cmd)
}

// Get returns the pending command for a correlation identifier.
func (s *PendingStore) Get(correlationID string) (models.PendingCommand, bool) {
	return s.commands.Get(correlationID)
}

// MarkAcknowledged records an acknowledgment against a pending command. The
// returned duplicate flag is true when the entry was already acknowledged.
func (s *PendingStore) MarkAcknowledged(correlationID string, at time.Time) (cmd models.PendingCommand, found, duplicate bool) {
	s.commands.Upsert(correlationID, models.PendingCommand{}, func(exist bool, current, _ models.PendingCommand) models.PendingCommand {
		if !exist {
			return models.PendingCommand{}
		}
		found = true
		duplicate = current.Acknowledged
		current.AckCount++
		if !current.Acknowledged {
			current.Acknowledged = true
			ackAt := at
			current.AcknowledgedAt = &ackAt
		}
		cmd = current
		return current
	})
	if !found {
		// Upsert created a placeholder for the unknown id; drop it again.
		s.commands.RemoveCb(correlationID, func(_ string, v models.PendingCommand, exists bool) bool {
			return exists && v.CorrelationID == ""
		})
	}
	return cmd, found, duplicate
}

// Count returns the number of retained entries.
func (s *PendingStore) Count() int {
	return s.commands.Count()
}

// Items returns a point-in-time copy of the retained commands.
func (s *PendingStore) Items() map[string]models.PendingCommand {
	return s.commands.Items()
}

// evict drops entries older than the TTL, then the oldest entries beyond the
// capacity cap (leaving room for one insert).
func (s *PendingStore) evict(now time.Time) {
	type aged struct {
		id     string
		sentAt time.Time
	}

	var all []aged
	for id, cmd := range s.commands.Items() {
		if s.ttl > 0 && now.Sub(cmd.SentAt) > s.ttl {
			s.commands.Remove(id)
			s.logger.Debug().Str("correlation_id", id).Msg("Expired pending command evicted")
			continue
		}
		all = append(all, aged{id: id, sentAt: cmd.SentAt})
	}

	if s.maxEntries <= 0 || len(all) < s.maxEntries {
		return
	}

	for len(all) >= s.maxEntries {
		oldest := 0
		for i := range all {
			if all[i].sentAt.Before(all[oldest].sentAt) {
				oldest = i
			}
		}
		s.commands.Remove(all[oldest].id)
		s.logger.Debug().Str("correlation_id", all[oldest].id).Msg("Surplus pending command evicted")
		all = append(all[:oldest], all[oldest+1:]...)
	}
}
