package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/pano-twist/internal/config"
	"github.com/menta2k/pano-twist/internal/utils"
	"github.com/menta2k/pano-twist/pkg/batch"
	"github.com/menta2k/pano-twist/pkg/equirect"
	"github.com/menta2k/pano-twist/pkg/imageio"
	"github.com/menta2k/pano-twist/pkg/metadata"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <folder>",
		Short: "List the equirectangular panoramas in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := a.newEditor()
			if err != nil {
				return err
			}
			job, err := editor.ScanFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := follow(cmd.Context(), a.log, job, "read"); err != nil {
				return err
			}
			printLines(cmd.OutOrStdout(), job.Completed())
			return nil
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	var rotate float64
	cmd := &cobra.Command{
		Use:   "apply <panorama>",
		Short: "Rotate, rescale and patch one panorama",
		Long: "Rotate, rescale and patch one panorama. The result is written to the\n" +
			"output subfolder next to the input file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := a.newEditor()
			if err != nil {
				return err
			}
			dir, name := filepath.Split(args[0])
			if dir == "" {
				dir = "."
			}
			if err := editor.SetFolder(dir, []string{name}, name); err != nil {
				return err
			}
			editor.SetAngle(rotate * math.Pi / 180)

			path, err := editor.ApplyCurrent()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	a.addEditFlags(cmd)
	cmd.Flags().Float64VarP(&rotate, "rotate", "r", 0, "azimuth rotation in degrees; positive turns right")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Patch and rescale every panorama in a folder",
		Long: "Patch and rescale every panorama in a folder. Batch runs do not rotate.\n" +
			"Press Ctrl-C to stop after the file being written.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			editor, err := a.newEditor()
			if err != nil {
				return err
			}
			scan, err := editor.ScanFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := follow(cmd.Context(), a.log, scan, "read"); err != nil {
				return err
			}
			found := scan.Completed()
			if len(found) == 0 {
				a.log.Warn().Str("folder", args[0]).Msg("no panoramas found")
				return nil
			}
			if err := editor.SetFolder(args[0], found, ""); err != nil {
				return err
			}

			job, err := editor.SaveAll(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := follow(cmd.Context(), a.log, job, "saved")
			if err != nil {
				return err
			}
			a.log.Info().
				Int("saved", snap.Processed).
				Str("folder", editor.OutputDir()).
				Msgf("%d panoramas saved", snap.Processed)
			return nil
		},
	}
	a.addEditFlags(cmd)
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Show the size of an image and its panorama metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imageio.New().Read(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "size: %dx%d\n", img.Width, img.Height)
			fmt.Fprintf(w, "equirectangular: %t\n", img.IsEquirectangular())

			if !utils.FileExists(metadata.SidecarPath(args[0])) {
				fmt.Fprintln(w, "gpano: none")
				return nil
			}
			g, err := metadata.Read(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", metadata.SidecarPath(args[0]), err)
			}
			fmt.Fprintf(w, "gpano: %dx%d\n", g.Width, g.Height)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	path := func() string {
		if a.configPath != "" {
			return a.configPath
		}
		return config.GetConfigPath()
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := path()
			if err := config.Default().SaveToFile(p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := json.MarshalIndent(a.cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	return cmd
}

// follow logs the progress of job until it finishes. An interrupt signal
// asks the job to stop after the item in flight; follow then returns
// errCancelled together with the last snapshot.
func follow(ctx context.Context, log zerolog.Logger, job *batch.Job[*equirect.Image], verb string) (batch.Snapshot[*equirect.Image], error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		g         errgroup.Group
		cancelled bool
	)
	g.Go(func() error {
		for ev := range job.Events() {
			switch ev.Kind {
			case batch.ItemDone:
				snap := job.Snapshot()
				log.Debug().
					Str("file", ev.Item).
					Int("width", snap.LastResult.Width).
					Int("height", snap.LastResult.Height).
					Msgf("%s %3.0f%%", verb, snap.Percent)
			case batch.JobDone:
				cancelled = ev.Cancelled
			}
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
			if job.RequestCancel() {
				log.Warn().Msg("stopping after the current file")
			}
		case <-job.Done():
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return job.Snapshot(), err
	}

	snap := job.Snapshot()
	if cancelled {
		log.Warn().Int("processed", snap.Processed).Int("total", snap.Total).Msg("cancelled")
		return snap, errCancelled
	}
	return snap, nil
}
