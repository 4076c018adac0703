package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/documentrouter/internal/audit"
	"github.com/Lllllllleong/documentrouter/internal/gcp"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		bucket string
		object string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload a snapshot of the audit log to Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if bucket == "" {
				bucket = root.cfg.Storage.ResultsBucket
			}
			if bucket == "" {
				return fmt.Errorf("no bucket: pass --bucket or set RESULTS_BUCKET")
			}
			if object == "" {
				object = fmt.Sprintf("audit/%s.json", time.Now().UTC().Format("20060102T150405Z"))
			}

			store, err := audit.Open(root.cfg.Audit.Path)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(store.Entries(), "", "    ")
			if err != nil {
				return fmt.Errorf("failed to encode audit log: %w", err)
			}

			objects, err := gcp.NewGCSObjects(ctx)
			if err != nil {
				return err
			}
			defer objects.Close()
			if err := objects.Save(ctx, bucket, object, string(data)); err != nil {
				return err
			}
			cmd.Printf("Exported %d entries to gs://%s/%s\n", len(store.Entries()), bucket, object)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket (default: storage.resultsBucket)")
	cmd.Flags().StringVar(&object, "object", "", "destination object name (default: audit/<timestamp>.json)")
	return cmd
}
