package filestore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const fileKeyPattern = "file:%s"

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TLS      bool
}

// NewRedisClient connects and pings the server before returning.
func NewRedisClient(cfg RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402
		}
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithFields(logrus.Fields{
			"host":  cfg.Host,
			"port":  cfg.Port,
			"error": err.Error(),
		}).Error("failed to connect to redis")
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
	}).Info("redis connected successfully")
	return client, nil
}

// RedisStore keeps files as JSON documents so several proxy instances can share
// uploads. SET replaces the value atomically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, conversationID, hash string, f file.StoredFile) error {
	if conversationID == "" || hash == "" {
		return file.ErrInvalidFileReference
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal file: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(conversationID, hash), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID, hash string) (*file.StoredFile, error) {
	raw, err := s.client.Get(ctx, redisKey(conversationID, hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, file.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	var f file.StoredFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file: %w", err)
	}
	return &f, nil
}

func redisKey(conversationID, hash string) string {
	return fmt.Sprintf(fileKeyPattern, file.Key(conversationID, hash))
}
