package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

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

	// "HandleIntake" is the entry point name configured in GCP.
	functions.HTTP("HandleIntake", handleIntake)
}

// main is required by the Go Functions Framework.
func main() {}

func handleIntake(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		intakeInstance, initErr = services.NewIntake(context.Background())
	})
	if initErr != nil {
		slog.Error("Intake initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	intakeInstance.ServeHTTP(w, r)
}
