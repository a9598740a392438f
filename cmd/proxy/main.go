package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeuralTrust/SecurityProxy/pkg/config"
	"github.com/NeuralTrust/SecurityProxy/pkg/dependency_container"
	infraLogger "github.com/NeuralTrust/SecurityProxy/pkg/infra/logger"
	"github.com/NeuralTrust/SecurityProxy/pkg/server"
	"github.com/NeuralTrust/SecurityProxy/pkg/server/router"
	"github.com/NeuralTrust/SecurityProxy/pkg/version"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)


func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infraLogger.NewLogger(version.ServiceName, infraLogger.Options{
		Level:   cfg.Logging.Level,
		ToFile:  cfg.Logging.ToFile,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if closer, ok := logger.Out.(io.Closer); ok {
			_ = closer.Close()
		}
	}()

	container, err := dependency_container.NewContainer(dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	srv := server.NewAPIServer(server.APIServerDI{
		Config:  cfg,
		Logger:  logger,
		Routers: []router.ServerRouter{router.NewAPIRouter(container.MiddlewareTransport, container.HandlerTransport)},
	})

	info := version.GetInfo()
	logger.WithFields(logrus.Fields{
		"version": info.Version,
		"commit":  info.Commit,
		"storage": cfg.Storage.Driver,
	}).Info("starting " + info.String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("server stopped unexpectedly")
		}
	}

	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("error during server shutdown")
	}
	logger.Info("server exited")
}
