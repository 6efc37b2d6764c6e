package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"freakfest/internal/manifest"
	"freakfest/internal/media"
)

var (
	manifestKind string

	syncTag     string
	syncTargets []string
)

// manifestCmd rebuilds manifest.json files without downloading anything.
var manifestCmd = &cobra.Command{
	Use:   "manifest [dir]",
	Short: "Rebuild media manifests",
	Long: `Rebuild manifest.json for one directory, or for every media target when
no directory is given. Flyer directories are ordered by the configured slots.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage bundled media",
}

// mediaSyncCmd downloads release archives and installs them.
var mediaSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download and install media archives from the release",
	RunE:  runMediaSync,
}

func init() {
	manifestCmd.Flags().StringVar(&manifestKind, "kind", string(manifest.KindFlyers), "manifest kind for [dir]: files or images")

	mediaSyncCmd.Flags().StringVar(&syncTag, "tag", "", "release tag (default: media.release_tag)")
	mediaSyncCmd.Flags().StringSliceVar(&syncTargets, "target", nil, "only sync these targets")
	mediaCmd.AddCommand(mediaSyncCmd)
}

func newSyncer() (*media.Syncer, error) {
	targets, err := cfg.MediaTargets()
	if err != nil {
		return nil, err
	}
	slots, err := cfg.FlyerSlots()
	if err != nil {
		return nil, err
	}
	s := media.NewSyncer(cfg.AssetsDir(), logger.Named("media"))
	s.ReleaseBase = cfg.Media.ReleaseBase
	s.Tag = cfg.Media.ReleaseTag
	s.Targets = targets
	s.Slots = slots
	return s, nil
}

func runManifest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		s, err := newSyncer()
		if err != nil {
			return err
		}
		return s.BuildManifests()
	}

	opts := manifest.Options{Kind: manifest.Kind(manifestKind)}
	switch opts.Kind {
	case manifest.KindFlyers:
		slots, err := cfg.FlyerSlots()
		if err != nil {
			return err
		}
		opts.Slots = slots
	case manifest.KindGallery:
	default:
		return fmt.Errorf("unknown manifest kind %q", manifestKind)
	}

	res, err := manifest.NewBuilder(logger.Named("manifest")).Build(filepath.Clean(args[0]), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d duplicates dropped, %d renamed\n",
		len(res.Files), res.Duplicates, len(res.Remapped))
	return nil
}

func runMediaSync(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}
	tag := s.Tag
	if syncTag != "" {
		tag = syncTag
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var results []media.Result
	failed := 0
	for _, t := range s.Targets {
		if len(syncTargets) > 0 && !slices.Contains(syncTargets, t.Name) {
			continue
		}
		r := s.Sync(ctx, t, tag)
		if r.Error != "" {
			failed++
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return fmt.Errorf("no media target matches %v", syncTargets)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}
