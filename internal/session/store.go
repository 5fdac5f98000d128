package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"

	"oahushop/internal/errx"
	"oahushop/internal/logx"
)

// CookieName is the cookie carrying the session (or its id).
const CookieName = "oahu_session"

// Store loads and saves session state for a request. Load always returns a
// usable state; on error it is Initial().
type Store interface {
	Load(r *http.Request) (State, error)
	Save(w http.ResponseWriter, r *http.Request, s State) error
}

// CookieStore keeps the whole state in a signed and encrypted browser-session cookie.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewCookieStore builds a store from the given keys. A nil hashKey gets a
// random key, which invalidates sessions on restart.
func NewCookieStore(hashKey, blockKey []byte, secure bool) *CookieStore {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
		logx.Warn().Msg("session hash key not configured, using a random key")
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &CookieStore{codec: codec, secure: secure}
}

func (cs *CookieStore) Load(r *http.Request) (State, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Initial(), nil
	}
	var s State
	if err := cs.codec.Decode(CookieName, c.Value, &s); err != nil {
		return Initial(), fmt.Errorf("decode session cookie: %w", err)
	}
	return s.normalized(), nil
}

func (cs *CookieStore) Save(w http.ResponseWriter, _ *http.Request, s State) error {
	encoded, err := cs.codec.Encode(CookieName, s)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessionCookie(encoded, cs.secure))
	return nil
}

// redisClient is the part of redis.Cmdable the store uses.
type redisClient interface {
	GetEx(ctx context.Context, key string, expiration time.Duration) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps state in Redis under an opaque id cookie. Every read
// extends the key's TTL.
type RedisStore struct {
	rdb    redisClient
	ttl    time.Duration
	secure bool
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration, secure bool) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, secure: secure}
}

func (rs *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("session:%s:state", id)
}

func (rs *RedisStore) Load(r *http.Request) (State, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || !validID(c.Value) {
		return Initial(), nil
	}
	key := rs.sessionKey(c.Value)

	raw, err := rs.rdb.GetEx(r.Context(), key, rs.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Initial(), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return Initial(), errx.WrapRedis(err)
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to unmarshal session")
		return Initial(), fmt.Errorf("unmarshal session: %w", err)
	}
	return s.normalized(), nil
}

func (rs *RedisStore) Save(w http.ResponseWriter, r *http.Request, s State) error {
	var id string
	if c, err := r.Cookie(CookieName); err == nil && validID(c.Value) {
		id = c.Value
	} else {
		id = uuid.NewString()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := rs.sessionKey(id)
	if err := rs.rdb.Set(r.Context(), key, b, rs.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	http.SetCookie(w, sessionCookie(id, rs.secure))
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// sessionCookie has no MaxAge so it ends with the browser session.
func sessionCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
