package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grainlyyy/pds-api/internal/config"
	"github.com/grainlyyy/pds-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// ChannelPrefix is prepended to the recipient address to form a pub/sub channel.
const ChannelPrefix = "notifications:"

func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Publisher fans stored notifications out to subscribers of the recipient's channel.
type Publisher struct {
	rdb *goredis.Client
}

func NewPublisher(rdb *goredis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Channel returns the pub/sub channel for a recipient address.
func Channel(recipient string) string {
	return ChannelPrefix + strings.ToLower(recipient)
}

func (p *Publisher) Publish(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(n.RecipientAddress), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Ping checks connectivity; used by the health endpoint.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
