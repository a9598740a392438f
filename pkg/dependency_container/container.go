package dependency_container

import (
	"fmt"
	"net/http"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/app/chat"
	"github.com/NeuralTrust/SecurityProxy/pkg/app/files"
	"github.com/NeuralTrust/SecurityProxy/pkg/app/preprocess"
	"github.com/NeuralTrust/SecurityProxy/pkg/config"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
	"github.com/NeuralTrust/SecurityProxy/pkg/domain/security"
	handlers "github.com/NeuralTrust/SecurityProxy/pkg/handlers/http"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/filestore"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/firewall"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/httpx"
	"github.com/NeuralTrust/SecurityProxy/pkg/infra/llm"
	"github.com/NeuralTrust/SecurityProxy/pkg/server/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type Container struct {
	FileRepository      file.Repository
	RedisClient         *redis.Client
	Resolver            *security.Resolver
	ProxyClient         firewall.ProxyClient
	LLMClient           llm.Client
	Preprocessor        preprocess.Preprocessor
	ChatService         chat.Service
	HandlerTransport    handlers.HandlerTransport
	MiddlewareTransport *middleware.Transport

	stopJanitor func()
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// HTTPClient overrides the outbound client used for the security proxy.
	HTTPClient httpx.Client
	// FileRepository overrides the configured blob store.
	FileRepository file.Repository
}

func NewContainer(di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	logger := di.Logger

	global, err := config.DecodeSettings(cfg.Security.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to decode global security settings: %w", err)
	}

	c := &Container{FileRepository: di.FileRepository}
	if c.FileRepository == nil {
		if err := c.initFileRepository(cfg, logger); err != nil {
			return nil, err
		}
	}

	creds := cfg.Credentials()
	selector := security.NewProviderSelector(creds, cfg.Security.ProviderFallback)
	c.Resolver = security.NewResolver(selector)

	httpClient := di.HTTPClient
	if httpClient == nil {
		httpClient = httpx.NewFastHTTPClient(
			httpx.WithTimeout(cfg.Security.CallTimeout),
			httpx.WithUserAgent("SecurityProxy"),
		)
	}
	newBreaker := func(endpoint string) httpx.CircuitBreaker {
		return httpx.NewCircuitBreaker(
			"security-proxy "+endpoint,
			cfg.Security.CircuitBreaker.Timeout,
			cfg.Security.CircuitBreaker.MaxFailures,
			httpx.WithIgnoredErrors(firewall.IsCancellation),
			httpx.WithStateChangeHook(func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			}),
		)
	}
	c.ProxyClient = firewall.NewSecurityProxyClient(
		logger,
		creds,
		selector,
		firewall.WithHTTPClient(httpClient),
		firewall.WithBreakerFactory(newBreaker),
		firewall.WithDummyDelay(cfg.Security.DummyDelay),
	)
	c.LLMClient = llm.NewClient(logger, llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))

	uploader := files.NewUploader(logger, c.FileRepository)
	downloader := files.NewDownloader(logger, c.FileRepository)
	c.Preprocessor = preprocess.NewPreprocessor(logger, downloader)

	c.ChatService = chat.NewService(
		logger,
		c.Preprocessor,
		c.Resolver,
		c.ProxyClient,
		c.LLMClient,
		chat.WithGlobalSettings(global),
		chat.WithLLMDefaults(cfg.LLMDefaults()),
		chat.WithCallTimeout(cfg.Security.CallTimeout),
	)

	c.HandlerTransport = handlers.HandlerTransport{
		UploadFileHandler:    handlers.NewUploadFileHandler(logger, uploader),
		DownloadFileHandler:  handlers.NewDownloadFileHandler(logger, downloader),
		SendMessageHandler:   handlers.NewSendMessageHandler(logger, c.ChatService),
		SecurityCheckHandler: handlers.NewSecurityCheckHandler(logger, c.Preprocessor, c.Resolver, c.ProxyClient, global, cfg.Security.CallTimeout),
		GetVersionHandler:    handlers.NewGetVersionHandler(logger),
	}

	transport := middleware.NewTransport(
		middleware.NewPanicRecoverMiddleware(logger),
		middleware.NewRequestIDMiddleware(),
	)
	if len(cfg.Server.CORS.AllowOrigins) > 0 {
		transport.RegisterMiddleware(middleware.NewCORSMiddleware(
			cfg.Server.CORS.AllowOrigins,
			cfg.Server.CORS.AllowMethods,
			cfg.Server.CORS.AllowCredentials,
			cfg.Server.CORS.ExposeHeaders,
			cfg.Server.CORS.MaxAge,
		))
	}
	if cfg.Metrics.Enabled {
		transport.RegisterMiddleware(middleware.NewMetricsMiddleware(logger))
	}
	c.MiddlewareTransport = transport

	return c, nil
}

func (c *Container) initFileRepository(cfg *config.Config, logger *logrus.Logger) error {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client, err := filestore.NewRedisClient(filestore.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis file store: %w", err)
		}
		c.RedisClient = client
		c.FileRepository = filestore.NewRedisStore(client, cfg.Storage.TTL)
	default:
		store := filestore.NewMemoryStore(cfg.Storage.TTL)
		c.stopJanitor = store.StartJanitor(janitorInterval(cfg.Storage.TTL))
		c.FileRepository = store
	}
	return nil
}

func janitorInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 4; interval > time.Second {
		return min(interval, 10*time.Minute)
	}
	return time.Second
}

// Close releases the connections opened by the container.
func (c *Container) Close() error {
	if c.stopJanitor != nil {
		c.stopJanitor()
	}
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}
