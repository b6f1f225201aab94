package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// ConnectRedisQuorum abre um client por nó do quorum de lock
// Cada nó precisa ser um Redis independente (sem replicação entre eles)
func ConnectRedisQuorum(addrs []string) ([]*redis.Client, error) {
	clients := make([]*redis.Client, 0, len(addrs))
	for _, addr := range addrs {
		c, err := ConnectRedis(addr)
		if err != nil {
			for _, opened := range clients {
				_ = opened.Close()
			}
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}
