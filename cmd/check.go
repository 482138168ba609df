package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-linearcache/pkg/app"
	"github.com/deploymenttheory/go-linearcache/pkg/app/check"
)

var (
	checkMirrorRoot     string
	checkFrameworkDir   string
	checkApplicationDir string
	checkSkipDataCheck  bool
	checkDryRun         bool
	checkMetrics        bool
	checkProgressScale  uint8
)

var checkCmd = &cobra.Command{
	Use:   "check [image]",
	Short: "Verify the cache, rebuilding it from a mirror when one is given",
	Long: `Run one cache pass over the image.

Without --mirror the pass only verifies: the header identity and every
element's info and data checksums. With --mirror every slot directory under
the mirror root is compared with the cached element, and stale or missing
elements are written back to the image.

Examples:
  # Verify a cache image
  lcache check cache.img

  # Rebuild from a host tree without touching the image
  lcache check cache.img --mirror ./sdcard --dry-run --metrics

  # Rebuild the cache on the second partition of a card
  lcache check /dev/sdb --partition 2 --mirror /mnt/sdcard`,

	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkMirrorRoot, "mirror", "m", "", "host directory the slot paths are resolved in (enables rebuild)")
	checkCmd.Flags().StringVar(&checkFrameworkDir, "framework-dir", "", "base path of framework slots")
	checkCmd.Flags().StringVar(&checkApplicationDir, "application-dir", "", "base path of application slots")
	checkCmd.Flags().BoolVar(&checkSkipDataCheck, "skip-data-check", false, "trust element data once its info sector checks out")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "run the pass on an in-memory copy of the image")
	checkCmd.Flags().BoolVar(&checkMetrics, "metrics", false, "report storage counters")
	checkCmd.Flags().Uint8Var(&checkProgressScale, "progress-scale", 0, "progress units per element (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	target, err := imageTarget(args)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	progressPrinter(ctx)
	cfg := ctx.Config

	req := &check.Request{
		Target:         target,
		MirrorRoot:     pick(checkMirrorRoot, cfg.MirrorRoot),
		FrameworkDir:   pick(checkFrameworkDir, cfg.FrameworkDir),
		ApplicationDir: pick(checkApplicationDir, cfg.ApplicationDir),
		Identity:       cfg.Identity,
		Retries:        retries,
		ProgressScale:  cfg.ProgressScale,
		SkipDataCheck:  checkSkipDataCheck || cfg.SkipDataCheck,
		DryRun:         checkDryRun,
		Metrics:        checkMetrics,
	}
	if checkProgressScale != 0 {
		req.ProgressScale = checkProgressScale
	}

	resp, err := check.Handle(ctx, req)
	if err != nil {
		return err
	}
	if err := check.FormatOutput(ctx.Out, resp, ctx.OutputFormat); err != nil {
		return err
	}

	if resp.Summary.Degraded() {
		return app.NewError(app.ErrCodeCacheInvalid, check.FormatSummary(resp), errDegraded)
	}
	return nil
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
