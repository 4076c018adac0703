package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentrouter/internal/audit"
	"github.com/Lllllllleong/documentrouter/internal/gcp"
	"github.com/Lllllllleong/documentrouter/internal/models"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		lastOnly bool
		remote   bool
	)
	cmd := &cobra.Command{
		Use:   "history <thread-id>",
		Short: "Show the processing lineage of one thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID := args[0]
			var entries []models.AuditEntry
			if remote {
				mirrored, err := remoteHistory(cmd.Context(), root, threadID)
				if err != nil {
					return err
				}
				entries = mirrored
			} else {
				store, err := audit.Open(root.cfg.Audit.Path)
				if err != nil {
					return err
				}
				entries = store.History(threadID)
			}
			if len(entries) == 0 {
				return fmt.Errorf("no entries for thread %s", threadID)
			}
			if lastOnly {
				entries = entries[len(entries)-1:]
			}
			return printEntries(cmd, entries)
		},
	}
	cmd.Flags().BoolVar(&lastOnly, "last", false, "only show the thread's current state")
	cmd.Flags().BoolVar(&remote, "remote", false, "read the Firestore mirror instead of the local log")
	return cmd
}

func newLogCmd(root *rootOptions) *cobra.Command {
	var threadsOnly bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the whole audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := audit.Open(root.cfg.Audit.Path)
			if err != nil {
				return err
			}
			if threadsOnly {
				for _, id := range store.Threads() {
					cmd.Println(id)
				}
				return nil
			}
			return printEntries(cmd, store.Entries())
		},
	}
	cmd.Flags().BoolVar(&threadsOnly, "threads", false, "list thread ids only")
	return cmd
}

func remoteHistory(ctx context.Context, root *rootOptions, threadID string) ([]models.AuditEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := gcp.NewFirestoreClient(ctx, root.cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	mirror := gcp.NewFirestoreMirror(client, root.cfg.Firestore.Collection)
	defer mirror.Close()
	return mirror.History(ctx, threadID)
}

func printEntries(cmd *cobra.Command, entries []models.AuditEntry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
