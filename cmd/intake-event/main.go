package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/documentrouter/internal/services"
)

var (
	intakeInstance *services.IntakeFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("RouteUploadedDocument", routeUploadedDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// routeUploadedDocument handles storage object-finalized events.
func routeUploadedDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		intakeInstance, initErr = services.NewIntake(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	resp, err := intakeInstance.ProcessObject(ctx, gcsEvent)
	if err != nil {
		return err
	}
	if resp != nil {
		slog.Info("Uploaded document routed", "eventId", e.ID(), "threadId", resp.ThreadID, "status", resp.Status, "result", resp.ResultURI)
	}
	return nil
}
