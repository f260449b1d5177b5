package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const registrationGuardTTL = 30 * time.Second

// releaseScript deletes the key only while it still carries the caller's
// token, so a holder whose TTL lapsed cannot free a later holder's claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RegistrationGuard serialises concurrent registrations of the same email.
// Key format: register:<email>, value: the holder's token. The TTL bounds how
// long a crashed request can hold the email.
type RegistrationGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistrationGuard creates a RegistrationGuard wrapping the given Redis client.
func NewRegistrationGuard(client *redis.Client) *RegistrationGuard {
	return &RegistrationGuard{client: client, ttl: registrationGuardTTL}
}

// Acquire reports whether the caller now holds the email, and with what token.
func (g *RegistrationGuard) Acquire(ctx context.Context, email string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(email), token, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("registration guard acquire: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the email if token still owns it. A lapsed or foreign claim
// is left alone.
func (g *RegistrationGuard) Release(ctx context.Context, email, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.key(email)}, token).Err(); err != nil {
		return fmt.Errorf("registration guard release: %w", err)
	}
	return nil
}

func (g *RegistrationGuard) key(email string) string {
	return "register:" + email
}
