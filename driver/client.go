package driver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/matst80/gremlink/cache"
	"github.com/matst80/gremlink/graphson"
	"github.com/matst80/gremlink/internal/obs"
)

// Client is the caller-facing wrapper around one Connection: it builds
// requests, waits out futures and optionally serves repeated eval scripts
// from a result cache.
type Client struct {
	conn     *Connection
	cfg      *Config
	cache    cache.Store
	cacheTTL time.Duration
}

// NewClient builds a client and, unless cfg.LazyOpen is set, opens the
// connection before returning.
func NewClient(cfg *Config) (*Client, error) {
	full := cfg.withDefaults()
	c := &Client{conn: newConnection(full, wsDialer{}, graphson.NewCodec(full.MimeType)), cfg: full}
	if !full.LazyOpen {
		if err := c.conn.Open(context.Background()); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithCache enables result caching for Submit. Only enable for scripts whose
// results may legitimately be served stale for ttl.
func (c *Client) WithCache(store cache.Store, ttl time.Duration) *Client {
	c.cache = store
	c.cacheTTL = ttl
	return c
}

// Connection exposes the underlying connection for state inspection.
func (c *Client) Connection() *Connection { return c.conn }

// Submit evaluates a script with optional bindings and returns the complete
// ordered result.
func (c *Client) Submit(ctx context.Context, script string, bindings map[string]any) ([]any, error) {
	var key string
	if c.cache != nil {
		key = cacheKey(script, bindings)
		if values, ok := c.cache.Get(ctx, key); ok {
			obs.CacheHitsTotal.Inc()
			return values, nil
		}
		obs.CacheMissesTotal.Inc()
	}
	fut, err := c.conn.Submit(ctx, NewEvalRequest(script, bindings, c.cfg.TraversalSource))
	if err != nil {
		return nil, err
	}
	values, err := fut.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Put(ctx, key, values, c.cacheTTL)
	}
	return values, nil
}

// SubmitBytecode executes a traversal program and returns the result with
// traverser bulk expanded, so callers see one value per logical result.
func (c *Client) SubmitBytecode(ctx context.Context, program *graphson.Bytecode) ([]any, error) {
	fut, err := c.conn.Submit(ctx, NewBytecodeRequest(program, c.cfg.TraversalSource))
	if err != nil {
		return nil, err
	}
	values, err := fut.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return expandTraversers(values), nil
}

// Close gracefully closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func cacheKey(script string, bindings map[string]any) string {
	h := sha256.New()
	h.Write([]byte(script))
	if len(bindings) > 0 {
		// json.Marshal sorts map keys, so the key is deterministic.
		if data, err := json.Marshal(bindings); err == nil {
			h.Write([]byte{0})
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func expandTraversers(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if t, ok := v.(graphson.Traverser); ok {
			n := t.Bulk
			if n < 1 {
				n = 1
			}
			for i := int64(0); i < n; i++ {
				out = append(out, t.Value)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
