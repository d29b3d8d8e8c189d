package cooldownstore

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore keeps cooldown entries in a Valkey-compatible database so
// multiple instances share one denylist. Entries carry a server-side TTL;
// a tracking set backs the global reset.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs the store.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "cooldown"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

// MarkFailed records the failure with the configured TTL.
func (s *ValkeyStore) MarkFailed(ctx context.Context, modelID string, at time.Time) error {
	setCmd := s.client.B().Set().Key(s.entryKey(modelID)).Value(at.UTC().Format(time.RFC3339Nano)).
		PxMilliseconds(s.ttl.Milliseconds()).Build()
	if err := s.client.Do(ctx, setCmd).Error(); err != nil {
		return err
	}
	trackCmd := s.client.B().Sadd().Key(s.indexKey()).Member(modelID).Build()
	return s.client.Do(ctx, trackCmd).Error()
}

// FailedAt returns the recorded failure time; expired keys read as absent.
func (s *ValkeyStore) FailedAt(ctx context.Context, modelID string) (time.Time, bool, error) {
	cmd := s.client.B().Get().Key(s.entryKey(modelID)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, payload)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// PurgeBefore is a no-op: the server expires entries via their TTL.
func (s *ValkeyStore) PurgeBefore(context.Context, time.Time) error {
	return nil
}

// Reset removes every tracked cooldown entry.
func (s *ValkeyStore) Reset(ctx context.Context) error {
	membersCmd := s.client.B().Smembers().Key(s.indexKey()).Build()
	members, err := s.client.Do(ctx, membersCmd).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil
		}
		return err
	}

	keys := make([]string, 0, len(members)+1)
	for _, member := range members {
		keys = append(keys, s.entryKey(member))
	}
	keys = append(keys, s.indexKey())

	delCmd := s.client.B().Del().Key(keys...).Build()
	return s.client.Do(ctx, delCmd).Error()
}

func (s *ValkeyStore) entryKey(modelID string) string {
	return s.prefix + ":model:" + modelID
}

func (s *ValkeyStore) indexKey() string {
	return s.prefix + ":models"
}
