package completion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog"
)

// Cache stores replies by key. store.MemoryStore and store.RedisStore satisfy it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Responder is anything that answers a Request; *Chain is the usual one.
type Responder interface {
	Generate(ctx context.Context, req Request) (Result, error)
	Model() string
}

// Cached serves repeated questions from a cache in front of a Responder.
type Cached struct {
	next      Responder
	cache     Cache
	namespace string
}

func NewCached(next Responder, cache Cache, namespace string) *Cached {
	return &Cached{next: next, cache: cache, namespace: namespace}
}

func (c *Cached) Model() string { return c.next.Model() }

func (c *Cached) Generate(ctx context.Context, req Request) (Result, error) {
	log := zerolog.Ctx(ctx)
	key := CacheKey(c.namespace, req.Message)

	text, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("cache get failed")
	case ok:
		return Result{Text: text, Source: SourceCache}, nil
	}

	res, err := c.next.Generate(ctx, req)
	if err != nil {
		return res, err
	}
	if res.Source != SourceCanned {
		if err := c.cache.Set(ctx, key, res.Text); err != nil {
			log.Warn().Err(err).Msg("cache set failed")
		}
	}
	return res, nil
}

// CacheKey hashes the normalized message so that case and spacing differences
// map to the same entry.
func CacheKey(namespace, message string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(message)), " ")
	sum := sha256.Sum256([]byte(namespace + "\x00" + norm))
	return hex.EncodeToString(sum[:])
}
