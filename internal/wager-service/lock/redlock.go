package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Handle identifica exatamente um holder de um recurso nomeado,
// válido até o Release explícito ou a expiração do TTL
type Handle interface {
	Release(ctx context.Context) error
}

// Config controla as tentativas de aquisição.
// Defaults espelham o serviço original: 2 retries, 100ms de delay, ±50ms de jitter
type Config struct {
	Retries     int
	RetryDelay  time.Duration
	RetryJitter time.Duration
}

// Client implementa o lock distribuído estilo redlock: a aquisição só vale
// quando a maioria dos nós Redis independentes concede a chave
type Client struct {
	rs  *redsync.Redsync
	cfg Config
}

// NewClient monta o quorum a partir de um client go-redis por nó
func NewClient(clients []*redis.Client, cfg Config) *Client {
	pools := make([]redsyncredis.Pool, 0, len(clients))
	for _, c := range clients {
		pools = append(pools, goredis.NewPool(c))
	}
	return &Client{rs: redsync.New(pools...), cfg: cfg}
}

// Acquire tenta obter o lock com TTL limitado, com retries e backoff jitterado.
// Contenção transitória nunca chega ao caller como falha de primeira tentativa
func (c *Client) Acquire(ctx context.Context, key string, ttl time.Duration) (Handle, error) {
	m := c.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(c.cfg.Retries+1),
		redsync.WithRetryDelayFunc(c.retryDelay),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return &mutexHandle{m: m}, nil
}

// retryDelay devolve o delay base ± jitter
func (c *Client) retryDelay(tries int) time.Duration {
	if c.cfg.RetryJitter <= 0 {
		return c.cfg.RetryDelay
	}
	jitter := time.Duration(rand.Int63n(int64(2*c.cfg.RetryJitter))) - c.cfg.RetryJitter
	return c.cfg.RetryDelay + jitter
}

type mutexHandle struct{ m *redsync.Mutex }

// Release devolve o lock ao quorum; depois do TTL o erro aqui é inofensivo
func (h *mutexHandle) Release(ctx context.Context) error {
	ok, err := h.m.UnlockContext(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("quorum did not confirm release")
	}
	return nil
}
