// Command splatforge converts, merges and edits Gaussian-splat files.
//
//	splatforge [GLOBAL] <input> [ACTIONS] ... <output> [ACTIONS]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/splatforge/splatforge"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "splatforge [flags] <input> [actions] ... <output> [actions]",
		Short: "Convert, merge and edit 3D Gaussian splat files",
		Long: `splatforge converts between gaussian splat formats (.ply,
.compressed.ply, .splat, .ksplat, .spz, .sog, meta.json, .csv, .html),
optionally transforming and merging scenes along the way.

Per-file actions:
  -t x,y,z        translate
  -r x,y,z        rotate (degrees)
  -s factor       uniform scale
  -n              drop non-finite splats
  -c name,cmp,v   filter by column value (cmp: lt lte gt gte eq neq)
  -b bands        limit spherical harmonic bands (0-3)
  -P name=value   generator parameters`,
		// The action grammar interleaves flags with positionals, so cobra
		// must hand us the raw argument stream.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	inv, err := parseArgs(args)
	if err != nil {
		return err
	}
	if inv.help {
		return cmd.Help()
	}
	if inv.version {
		fmt.Fprintf(cmd.OutOrStdout(), "splatforge %s\n", version)
		return nil
	}

	logger := splatforge.NewTextLogger(slog.LevelInfo)
	opts := []splatforge.Option{
		splatforge.WithLogger(logger),
		splatforge.WithOverwrite(inv.overwrite),
		splatforge.WithIterations(inv.iterations),
		splatforge.WithCamera(inv.cameraPos, inv.cameraTgt),
	}

	p := splatforge.New(opts...)
	return p.Run(context.Background(), inv.inputs, inv.output)
}
