package correlate

import (
	"fmt"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"unilog/internal/security"
	"unilog/pkg/types"
)

// defaultSessionFields identify a session when the correlation block
// carries neither a session nor a user ID.
var defaultSessionFields = []string{"session_id", "user_id", "client_ip", "user_agent"}

// SessionStrategy groups records belonging to one user session, closing
// a session after a configurable idle gap.
type SessionStrategy struct {
	sessionFields []string
	timeout       time.Duration
	maxSessions   int
	logger        *logrus.Logger

	overflowWarned bool
}

func NewSessionStrategy(sessionFields []string, timeout time.Duration, logger *logrus.Logger) *SessionStrategy {
	if sessionFields == nil {
		sessionFields = defaultSessionFields
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionStrategy{
		sessionFields: sessionFields,
		timeout:       timeout,
		maxSessions:   security.MaxSessionGroups,
		logger:        logger,
	}
}

func (s *SessionStrategy) Name() string { return "session" }

// SupportsStreaming is false: sessions stay open until the stream ends
// or the idle timeout passes.
func (s *SessionStrategy) SupportsStreaming() bool { return false }

type sessionState struct {
	records []*types.Record
	lastTS  *time.Time
}

// Correlate groups records by session key. A gap longer than the
// timeout closes the session and starts a new one under the same key.
// Sessions of a single record are not emitted.
func (s *SessionStrategy) Correlate(records iter.Seq[*types.Record], bufferSize int) iter.Seq[*types.CorrelationGroup] {
	return func(yield func(*types.CorrelationGroup) bool) {
		sessions := make(map[string]*sessionState)
		order := make([]string, 0)

		for r := range records {
			key := s.extractSessionKey(r)
			if key == "" {
				continue
			}

			state, ok := sessions[key]
			if !ok {
				if len(sessions) >= s.maxSessions {
					if !s.overflowWarned {
						s.logger.WithField("max_sessions", s.maxSessions).
							Warn("Session group limit exceeded, additional sessions are dropped")
						s.overflowWarned = true
					}
					continue
				}
				state = &sessionState{}
				sessions[key] = state
				order = append(order, key)
			}

			if state.lastTS != nil && r.Timestamp != nil &&
				r.Timestamp.Sub(*state.lastTS) > s.timeout {
				// idle timeout: close the old session, open a new one
				if len(state.records) >= 2 {
					if !yield(types.NewCorrelationGroup(key, s.Name(), state.records, nil)) {
						return
					}
				}
				state.records = []*types.Record{r}
				state.lastTS = r.Timestamp
				continue
			}

			state.records = append(state.records, r)
			if r.Timestamp != nil {
				state.lastTS = r.Timestamp
			}
		}

		for _, key := range order {
			state := sessions[key]
			if len(state.records) < 2 {
				continue
			}
			if !yield(types.NewCorrelationGroup(key, s.Name(), state.records, nil)) {
				return
			}
		}
	}
}

func (s *SessionStrategy) extractSessionKey(r *types.Record) string {
	if r.Correlation.SessionID != "" {
		return "session:" + r.Correlation.SessionID
	}
	if r.Correlation.UserID != "" {
		return "user:" + r.Correlation.UserID
	}
	for _, field := range s.sessionFields {
		if v, ok := r.StructuredData[field]; ok {
			return fmt.Sprintf("%s:%v", field, v)
		}
	}
	return ""
}
