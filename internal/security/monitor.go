package security

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MonitorConfig carries the detection thresholds.
type MonitorConfig struct {
	Window              time.Duration
	FailureThreshold    int
	DistinctIPThreshold int
}

// Monitor answers read-only questions over the auth event log and records
// new events. Detection never mutates the log.
type Monitor struct {
	store  EventStore
	cfg    MonitorConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewMonitor(store EventStore, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	return &Monitor{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// RecordEvent appends an authentication attempt to the log. Failures are
// recorded the same as successes.
func (m *Monitor) RecordEvent(ctx context.Context, voterID string, channel Channel, outcome Outcome, sourceIP string) error {
	e := &AuthEvent{
		ID:       uuid.New().String(),
		VoterID:  voterID,
		At:       m.now().UTC(),
		Outcome:  outcome,
		SourceIP: sourceIP,
		Channel:  channel,
	}
	if err := m.store.Append(e); err != nil {
		m.logger.ErrorContext(ctx, "failed to record auth event",
			slog.String("voter_id", voterID),
			slog.String("error", err.Error()),
		)
		return err
	}
	if outcome == OutcomeFailure {
		m.logger.WarnContext(ctx, "authentication failure",
			slog.String("voter_id", voterID),
			slog.String("channel", string(channel)),
			slog.String("source_ip", sourceIP),
		)
	}
	return nil
}

// SuspiciousActivities flags voters whose failures within the trailing
// window exceed the failure threshold AND came from more than the allowed
// number of distinct source addresses. Both conditions must hold: a voter
// who fumbles a password repeatedly from one machine is not suspicious.
func (m *Monitor) SuspiciousActivities(ctx context.Context) ([]SuspiciousActivity, error) {
	cutoff := m.now().Add(-m.cfg.Window)
	events, err := m.store.Since(cutoff)
	if err != nil {
		return nil, err
	}

	type agg struct {
		failures  int
		ips       map[string]struct{}
		firstSeen time.Time
		lastSeen  time.Time
	}
	byVoter := make(map[string]*agg)

	for _, e := range events {
		if e.Outcome != OutcomeFailure {
			continue
		}
		a := byVoter[e.VoterID]
		if a == nil {
			a = &agg{ips: make(map[string]struct{}), firstSeen: e.At, lastSeen: e.At}
			byVoter[e.VoterID] = a
		}
		a.failures++
		if e.SourceIP != "" {
			a.ips[e.SourceIP] = struct{}{}
		}
		if e.At.Before(a.firstSeen) {
			a.firstSeen = e.At
		}
		if e.At.After(a.lastSeen) {
			a.lastSeen = e.At
		}
	}

	var out []SuspiciousActivity
	for voterID, a := range byVoter {
		if a.failures <= m.cfg.FailureThreshold || len(a.ips) <= m.cfg.DistinctIPThreshold {
			continue
		}
		ips := make([]string, 0, len(a.ips))
		for ip := range a.ips {
			ips = append(ips, ip)
		}
		sort.Strings(ips)
		out = append(out, SuspiciousActivity{
			VoterID:        voterID,
			FailedAttempts: a.failures,
			DistinctIPs:    len(a.ips),
			IPList:         ips,
			FirstSeen:      a.firstSeen,
			LastSeen:       a.lastSeen,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FailedAttempts != out[j].FailedAttempts {
			return out[i].FailedAttempts > out[j].FailedAttempts
		}
		if out[i].DistinctIPs != out[j].DistinctIPs {
			return out[i].DistinctIPs > out[j].DistinctIPs
		}
		return out[i].VoterID < out[j].VoterID
	})

	if len(out) > 0 {
		m.logger.WarnContext(ctx, "suspicious activity detected",
			slog.Int("flagged_voters", len(out)),
		)
	}
	return out, nil
}

// AuditLogs aggregates per-voter authentication counts, most troubled
// voters first.
func (m *Monitor) AuditLogs(ctx context.Context, limit int) ([]AuditEntry, error) {
	events, err := m.store.All()
	if err != nil {
		return nil, err
	}

	byVoter := make(map[string]*AuditEntry)
	for _, e := range events {
		entry := byVoter[e.VoterID]
		if entry == nil {
			entry = &AuditEntry{VoterID: e.VoterID, FirstActivity: e.At, LastActivity: e.At}
			byVoter[e.VoterID] = entry
		}
		switch {
		case e.Channel == ChannelPassword && e.Outcome == OutcomeSuccess:
			entry.PasswordSuccess++
		case e.Channel == ChannelPassword:
			entry.PasswordFailures++
		case e.Channel == ChannelFace && e.Outcome == OutcomeSuccess:
			entry.FaceSuccess++
		case e.Channel == ChannelFace:
			entry.FaceFailures++
		}
		if e.At.Before(entry.FirstActivity) {
			entry.FirstActivity = e.At
		}
		if e.At.After(entry.LastActivity) {
			entry.LastActivity = e.At
		}
	}

	out := make([]AuditEntry, 0, len(byVoter))
	for _, entry := range byVoter {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		fi := out[i].PasswordFailures + out[i].FaceFailures
		fj := out[j].PasswordFailures + out[j].FaceFailures
		if fi != fj {
			return fi > fj
		}
		return out[i].VoterID < out[j].VoterID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AuthSuccessRate returns the percentage of a voter's attempts that
// succeeded, across all channels.
func (m *Monitor) AuthSuccessRate(ctx context.Context, voterID string) (float64, error) {
	events, err := m.store.ByVoter(voterID)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, ErrNoEvents
	}

	successes := 0
	for _, e := range events {
		if e.Outcome == OutcomeSuccess {
			successes++
		}
	}
	return float64(successes) / float64(len(events)) * 100, nil
}
