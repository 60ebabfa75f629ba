package credentials

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis as the backing store.
// Credentials are stored as JSON under key: "credential:<sessionID>" with no
// TTL: the refresh token must remain usable long after the access token's
// expiry, so expiry is enforced by the refresher, never by the store.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based credential repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "credential:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisRepository) Upsert(ctx context.Context, sessionID, accessToken, refreshToken string, ttl time.Duration) error {
	cred := &Credential{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(ttl),
	}
	b, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sessionID), b, 0).Err()
}

func (r *RedisRepository) Get(ctx context.Context, sessionID string) (*Credential, error) {
	b, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
