package record

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChangeChannel is the pub/sub channel (redis) and notification channel
// (postgres) carrying the owner id of every changed record.
const ChangeChannel = "records_changed"

// Notifier fans record changes out to every store listening, possibly in
// other processes.
type Notifier interface {
	Publish(ctx context.Context, ownerID string) error
	// Listen registers fn and returns once the subscription is live. fn is
	// called until ctx ends.
	Listen(ctx context.Context, fn func(ownerID string)) error
}

// LocalNotifier delivers within the process.
type LocalNotifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(string)
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[int]func(string))}
}

func (n *LocalNotifier) Publish(ctx context.Context, ownerID string) error {
	n.mu.Lock()
	fns := make([]func(string), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ownerID)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, fn func(string)) error {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}()
	return nil
}

type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, ownerID string) error {
	return n.client.Publish(ctx, ChangeChannel, ownerID).Err()
}

func (n *RedisNotifier) Listen(ctx context.Context, fn func(string)) error {
	pubsub := n.client.Subscribe(ctx, ChangeChannel)
	// wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", ChangeChannel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					n.logger.Warn("record change subscription closed")
					return
				}
				fn(msg.Payload)
			}
		}
	}()
	return nil
}

// PostgresNotifier uses LISTEN/NOTIFY on the record database itself.
type PostgresNotifier struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresNotifier(pool *pgxpool.Pool, logger *zap.Logger) *PostgresNotifier {
	return &PostgresNotifier{pool: pool, logger: logger}
}

func (n *PostgresNotifier) Publish(ctx context.Context, ownerID string) error {
	_, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, ownerID)
	return err
}

func (n *PostgresNotifier) Listen(ctx context.Context, fn func(string)) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		conn.Release()
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	// the connection keeps the LISTEN, so it leaves the pool for good
	listener := conn.Hijack()
	go func() {
		defer listener.Close(context.Background())
		for {
			notification, err := listener.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					n.logger.Error("waiting for record change", zap.Error(err))
				}
				return
			}
			fn(notification.Payload)
		}
	}()
	return nil
}
