package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lllllllleong/documentrouter/internal/audit"
	"github.com/Lllllllleong/documentrouter/internal/config"
	"github.com/Lllllllleong/documentrouter/internal/dispatch"
	"github.com/Lllllllleong/documentrouter/internal/extract"
	"github.com/Lllllllleong/documentrouter/internal/gcp"
	"github.com/Lllllllleong/documentrouter/internal/kafka"
	"github.com/Lllllllleong/documentrouter/internal/metrics"
	"github.com/Lllllllleong/documentrouter/internal/oracle"
)

// Runtime owns every long-lived dependency of one process: the audit store
// and its mirrors, the oracle, the dispatcher and the cloud clients.
type Runtime struct {
	Config     *config.Config
	Store      *audit.Store
	Dispatcher *dispatch.Dispatcher
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	// Mirror is nil unless the Firestore mirror is enabled.
	Mirror *gcp.FirestoreMirror
	// Workflow is nil unless a workflow id is configured.
	Workflow *gcp.WorkflowTrigger

	objectsOnce sync.Once
	objects     *gcp.GCSObjects
	objectsErr  error
	closers     []func() error
}

// NewRuntime builds the runtime described by cfg.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Registry: prometheus.NewRegistry()}
	rt.Metrics = metrics.New(rt.Registry)

	var sinks []audit.Sink
	if cfg.Firestore.Enabled {
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		rt.Mirror = gcp.NewFirestoreMirror(client, cfg.Firestore.Collection)
		sinks = append(sinks, rt.Mirror)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}

	store, err := audit.Open(cfg.Audit.Path, audit.WithSinks(sinks...))
	if err != nil {
		closeSinks(sinks)
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	rt.Store = store
	rt.closers = append(rt.closers, store.Close)

	var caller oracle.Caller = oracle.Disabled{}
	if cfg.Oracle.Enabled {
		vertex, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.Oracle.Region, cfg.Oracle.Model)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		caller = vertex
		rt.closers = append(rt.closers, vertex.Close)
	} else {
		slog.Warn("Oracle disabled. Every document will be classified as Other.")
	}
	client := oracle.NewClient(caller,
		oracle.WithTimeout(cfg.Oracle.Timeout),
		oracle.WithFailureHook(func(op string, f oracle.Failure) {
			rt.Metrics.OracleFailure(op, string(f))
		}),
	)

	var extractor extract.Extractor = extract.Disabled{}
	if cfg.Extraction.Enabled {
		extractor = extract.NewPDF()
	}

	if cfg.Workflow.ID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, cfg.ProjectID, cfg.Workflow.Location, cfg.Workflow.ID)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to create workflow trigger: %w", err)
		}
		rt.Workflow = trigger
		rt.closers = append(rt.closers, trigger.Close)
	}

	rt.Dispatcher = dispatch.New(store, client,
		dispatch.WithExtractor(extractor),
		dispatch.WithMetrics(rt.Metrics),
	)
	return rt, nil
}

// Objects returns the storage client, creating it on first use.
func (rt *Runtime) Objects(ctx context.Context) (*gcp.GCSObjects, error) {
	rt.objectsOnce.Do(func() {
		rt.objects, rt.objectsErr = gcp.NewGCSObjects(ctx)
		if rt.objectsErr == nil {
			rt.closers = append(rt.closers, rt.objects.Close)
		}
	})
	return rt.objects, rt.objectsErr
}

// Close releases everything in reverse order of creation.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func closeSinks(sinks []audit.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
