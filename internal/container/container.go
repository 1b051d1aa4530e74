package container

import (
	"net/http"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/logger"
	"go-structural-validator/internal/mask"
	"go-structural-validator/internal/observer"
	"go-structural-validator/internal/orchestrator"
	"go-structural-validator/internal/scene"
	"go-structural-validator/internal/signal"
	"go-structural-validator/internal/storage"
	"go-structural-validator/internal/transport"
	"go-structural-validator/internal/validator"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	validator    *validator.Validator
	orchestrator *orchestrator.Orchestrator
	events       *observer.Publisher
	handler      http.Handler
}

// Dependencies are the external collaborators the container cannot build
// itself. Nil fields get safe defaults.
type Dependencies struct {
	Enhancer        orchestrator.Enhancer
	SceneClassifier scene.Classifier
	WindowDetector  signal.WindowDetector
	OpeningsDet     signal.OpeningsDetector
	PaintOverDet    signal.PaintOverDetector
}

// NewContainer wires the dependency graph
func NewContainer(cfg *config.Config, deps Dependencies) (*Container, error) {
	fileSource := storage.NewFileSource()
	httpSource := storage.NewHTTPSource(30 * time.Second)

	var azureSource storage.ImageSource
	if cfg.AzureAccountName != "" && cfg.AzureAccountKey != "" {
		src, err := storage.NewAzureSource(cfg.AzureAccountName, cfg.AzureAccountKey)
		if err != nil {
			return nil, err
		}
		azureSource = src
	}
	source := storage.NewRouter(httpSource, azureSource, fileSource)

	extractor := mask.NewHeuristicExtractor(cfg.SobelThreshold)
	maskCache := mask.NewCache(extractor, cfg.MaskCacheTTL, cfg.MaskCacheSweep)

	// Sub-validators register only when their backing detector exists
	registry := signal.NewRegistry()
	if deps.WindowDetector != nil {
		registry.Register(signal.NewWindowProducer(deps.WindowDetector))
	}
	if deps.OpeningsDet != nil {
		registry.Register(signal.NewOpeningsProducer(deps.OpeningsDet))
	}
	if deps.PaintOverDet != nil {
		registry.Register(signal.NewPaintOverProducer(deps.PaintOverDet))
	}

	artifacts := validator.NewArtifactWriter(cfg.ArtifactDir, cfg.ArtifactsEnabled)
	v := validator.New(cfg, source, maskCache, extractor, registry, artifacts)

	enhancer := deps.Enhancer
	if enhancer == nil {
		enhancer = orchestrator.PassthroughEnhancer{}
	}
	classifier := deps.SceneClassifier
	if classifier == nil {
		classifier = &scene.StaticClassifier{Label: "unknown", Confidence: 0}
	}

	events := observer.NewPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver())

	queue := orchestrator.NewMemoryQueue(0)
	store := orchestrator.NewStore()
	orch := orchestrator.New(cfg, v, enhancer, classifier, source, queue, store, events)

	return &Container{
		config:       cfg,
		validator:    v,
		orchestrator: orch,
		events:       events,
		handler:      transport.NewHandler(v, orch, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Orchestrator returns the pipeline orchestrator
func (c *Container) Orchestrator() *orchestrator.Orchestrator {
	return c.orchestrator
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
