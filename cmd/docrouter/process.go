package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentrouter/internal/models"
	"github.com/Lllllllleong/documentrouter/internal/services"
)

type processOptions struct {
	text        string
	sourceID    string
	sourceType  string
	threadID    string
	concurrency int
	asJSON      bool
}

type processOutcome struct {
	Source   string         `json:"source"`
	ThreadID string         `json:"threadId"`
	Status   models.Status  `json:"status"`
	Agent    string         `json:"agent,omitempty"`
	Fields   map[string]any `json:"fields"`
	Error    string         `json:"error,omitempty"`
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process [path...]",
		Short: "Process files, or a piece of text with --text",
		Long: `Runs each document through format detection, intent classification and
routing, appending every step to the audit log. Paths are processed
concurrently; each gets its own thread unless --thread is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.text == "" && len(args) == 0 {
				return fmt.Errorf("nothing to process: pass paths or --text")
			}
			if opts.threadID != "" && len(args) > 1 {
				return fmt.Errorf("--thread can only be used with a single document")
			}
			return runProcess(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.text, "text", "", "raw text to process instead of files")
	cmd.Flags().StringVar(&opts.sourceID, "source", "", "source identifier for --text (e.g. email.txt)")
	cmd.Flags().StringVar(&opts.sourceType, "source-type", "", "ingestion channel tag")
	cmd.Flags().StringVar(&opts.threadID, "thread", "", "append to an existing thread")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "documents processed in parallel (default from config)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	return cmd
}

func runProcess(cmd *cobra.Command, root *rootOptions, opts *processOptions, paths []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := services.NewRuntime(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.text != "" {
		sourceID := opts.sourceID
		if sourceID == "" {
			sourceID = "cli_text"
		}
		sourceType := opts.sourceType
		if sourceType == "" {
			sourceType = "cli_text_input"
		}
		threadID, result, err := rt.Dispatcher.Process(ctx, models.RawText(opts.text, ""), sourceID, sourceType, opts.threadID)
		if err != nil {
			return err
		}
		return printOutcomes(cmd, opts.asJSON, []processOutcome{outcome(sourceID, threadID, result)})
	}

	sourceType := opts.sourceType
	if sourceType == "" {
		sourceType = "filesystem"
	}
	limit := opts.concurrency
	if limit <= 0 {
		limit = root.cfg.Process.Concurrency
	}

	outcomes, runErr := processPaths(ctx, rt.Dispatcher, paths, sourceType, opts.threadID, limit)
	if err := printOutcomes(cmd, opts.asJSON, outcomes); err != nil {
		return err
	}
	return runErr
}

type pathDispatcher interface {
	Process(ctx context.Context, in models.Input, sourceID, sourceType, threadID string) (string, models.Result, error)
}

// processPaths dispatches every path with at most limit in flight. A failed
// document does not cancel the others; the first error is returned.
func processPaths(ctx context.Context, d pathDispatcher, paths []string, sourceType, threadID string, limit int) ([]processOutcome, error) {
	var mu sync.Mutex
	outcomes := make([]processOutcome, len(paths))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			thread, result, err := d.Process(ctx, models.Path(path), filepath.Base(path), sourceType, threadID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcomes[i] = processOutcome{Source: path, Error: err.Error()}
				return fmt.Errorf("failed to process %s: %w", path, err)
			}
			outcomes[i] = outcome(path, thread, result)
			return nil
		})
	}
	return outcomes, g.Wait()
}

func outcome(source, threadID string, r models.Result) processOutcome {
	return processOutcome{Source: source, ThreadID: threadID, Status: r.Status, Agent: r.Agent, Fields: r.Fields}
}

func printOutcomes(cmd *cobra.Command, asJSON bool, outcomes []processOutcome) error {
	if asJSON {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	for _, o := range outcomes {
		if o.Source == "" {
			continue
		}
		if o.Error != "" {
			cmd.Printf("%s: error: %s\n", o.Source, o.Error)
			continue
		}
		cmd.Printf("%s: thread %s, %s", o.Source, o.ThreadID, o.Status)
		if o.Agent != "" {
			cmd.Printf(" by %s", o.Agent)
		}
		cmd.Println()
	}
	return nil
}
