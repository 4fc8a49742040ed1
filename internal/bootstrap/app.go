package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"semantic-plagiarism/internal/ai"
	appsvc "semantic-plagiarism/internal/app"
	"semantic-plagiarism/internal/cache"
	"semantic-plagiarism/internal/chunker"
	"semantic-plagiarism/internal/config"
	rabbitmqClient "semantic-plagiarism/internal/platform/rabbitmq"
	redisClient "semantic-plagiarism/internal/platform/redis"
	"semantic-plagiarism/internal/report"
	"semantic-plagiarism/internal/worker"
)

type App struct {
	Config         *config.Config
	Redis          *redis.Client
	MQConn         *amqp.Connection
	Embedder       ai.Embedder
	Analysis       *appsvc.AnalysisService
	AnalysisWorker *worker.AnalysisWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig connects the optional redis and rabbitmq dependencies and builds the
// analysis service. Disabled dependencies stay nil.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, StartedAt: time.Now()}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
	}

	embedder, err := NewEmbedder(ctx, cfg, a.Redis)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Embedder = embedder

	a.Analysis, err = NewAnalysisService(cfg, embedder)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn

		a.AnalysisWorker = worker.NewAnalysisWorker(
			mqConn,
			a.Analysis,
			rabbitmqClient.NewReplyPublisher(mqConn),
			cfg.RabbitMQ.RequestQueue,
			cfg.RabbitMQ.Prefetch,
			cfg.EmbedTimeout()+30*time.Second,
		)
		if err := a.AnalysisWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start analysis worker failed: %w", err)
		}
	}
	return a, nil
}

// NewEmbedder builds the configured backend, wrapped with the redis cache when a
// client is given. The ONNX model is loaded up front when onnx_eager is set.
func NewEmbedder(ctx context.Context, cfg *config.Config, redisCli *redis.Client) (ai.Embedder, error) {
	embedder, err := ai.New(cfg.EmbedderSettings())
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}
	if cfg.Embedder.ONNXEager {
		if initializer, ok := embedder.(ai.Initializer); ok {
			if err := initializer.Init(ctx); err != nil {
				return nil, fmt.Errorf("load embedding model failed: %w", err)
			}
		}
	}
	if redisCli != nil {
		ttl := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
		embedder = ai.NewCachedEmbedder(embedder, cache.NewEmbeddingCache(redisCli, ttl))
	}
	log.Printf("EMBEDDER: using %s", embedder.Name())
	return embedder, nil
}

// NewAnalysisService maps the [analysis] section onto the pipeline.
func NewAnalysisService(cfg *config.Config, embedder ai.Embedder) (*appsvc.AnalysisService, error) {
	a := cfg.Analysis
	ch, err := chunker.New(a.ChunkStrategy, a.ChunkSize, a.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("create chunker failed: %w", err)
	}
	return appsvc.NewAnalysisService(ch, embedder, appsvc.Options{
		Threshold:        a.Threshold,
		BatchSize:        a.EmbedBatchSize,
		EmbedConcurrency: a.EmbedConcurrency,
		EmbedTimeout:     cfg.EmbedTimeout(),
		MatchConcurrency: a.MatchConcurrency,
		MaxChunkChars:    a.MaxChunkChars,
		Oversize:         ai.OversizePolicy(a.OversizePolicy),
		Report: report.Options{
			MaxMatches:         a.MaxReportMatches,
			MaxDocumentMatches: a.MaxDocumentMatches,
		},
	}), nil
}

func (a *App) Close() error {
	var closeErr error
	if a.AnalysisWorker != nil {
		a.AnalysisWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if closer, ok := a.Embedder.(ai.Closer); ok {
		if err := closer.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
