package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/scenecore/blobstore"
	"github.com/hupe1980/scenecore/internal/capture"
)

var inspectMatrices bool

func init() {
	cmd := newInspectCmd()
	cmd.Flags().BoolVar(&inspectMatrices, "matrices", false, "Print the root translation of every entity")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <capture>",
		Short: "Decode a capture file",
		Long: `The inspect command decodes a capture written by "scenectl capture --dir"
and prints its header and per-entity summary.

Example:
  scenectl inspect captures/frames/frame-000001.scap --matrices`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store := blobstore.NewLocalStore(filepath.Dir(path))
	data, err := blobstore.ReadAll(ctx, store, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	f, err := capture.Decode(bytes.NewReader(data), capture.WithMaxEntities(capacity))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	nodes, joints := 0, 0
	for _, e := range f.Entities {
		nodes += len(e.Nodes)
		joints += len(e.Joints)
	}

	rows := []string{
		field("Size", fmt.Sprintf("%d B", len(data))),
		field("Sequence", f.Sequence),
		field("Entities", len(f.Entities)),
		field("Nodes", nodes),
		field("Joints", joints),
	}
	if inspectMatrices {
		rows = append(rows, "")
		for _, e := range f.Entities {
			root := "-"
			if len(e.Nodes) > 0 {
				t := e.Nodes[0].Col(3)
				root = fmt.Sprintf("(%.3f, %.3f, %.3f)", t[0], t[1], t[2])
			}
			rows = append(rows, field(fmt.Sprintf("#%d gen %d", e.ID, e.Gen), root))
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), section(filepath.Base(path), rows...))
	return nil
}
