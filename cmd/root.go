package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-linearcache/internal/config"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string

	// Shared by every command that opens an image
	partition uint8
	retries   uint32

	appCtx *app.Context
)

var rootCmd = &cobra.Command{
	Use:   "lcache",
	Short: "Verify, rebuild and inspect linear element caches",
	Long: `lcache works on linear element cache images: raw sector volumes that hold
a header, element data packed from the front and one info sector per
element packed from the back, every sector protected by a CRC32C.

Works directly with image files or block devices. A host directory tree can
act as the mirror the cache is rebuilt from.

Commands:
  check       Verify the cache, rebuilding it from a mirror when one is given
  header      Show the cache header and its checks
  list        List cached elements
  extract     Copy one cached element to a file`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		appCtx = app.NewContext()
		appCtx.Config = cfg
		appCtx.Verbose = verbose
		appCtx.Quiet = quiet
		appCtx.OutputFormat = outputFormat
		appCtx.Out = cmd.OutOrStdout()
		appCtx.ApplyVerbosity()

		if !cmd.Flags().Changed("partition") {
			partition = cfg.Partition
		}
		if !cmd.Flags().Changed("retries") {
			retries = cfg.Retries
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code := app.ErrorCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "Code:  %s\n", code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: lcache-config.yaml in ., ./config, $HOME/.lcache, /etc/lcache)")
	rootCmd.PersistentFlags().Uint8VarP(&partition, "partition", "p", 0, "MBR partition holding the cache (0 for the whole image)")
	rootCmd.PersistentFlags().Uint32Var(&retries, "retries", 3, "extra attempts for each failed sector transfer")

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// commandContext binds the application context to the command context
func commandContext(cmd *cobra.Command) *app.Context {
	ctx := *appCtx
	if c := cmd.Context(); c != nil {
		ctx.Context = c
	}
	return &ctx
}

// imageTarget picks the image from the arguments or the config file
func imageTarget(args []string) (app.ImageTarget, error) {
	target := app.ImageTarget{Path: appCtx.Config.Image, Partition: partition}
	if len(args) > 0 {
		target.Path = args[0]
	}
	if target.Path == "" {
		return target, app.NewError(app.ErrCodeInvalidInput,
			"no cache image given on the command line or in the config file", nil)
	}
	return target, nil
}

// progressPrinter reports progress on stderr when verbose
func progressPrinter(ctx *app.Context) {
	if !ctx.Verbose || ctx.Quiet {
		return
	}
	last := -1
	ctx.SetProgress(func(message string, percent int) {
		if percent == last {
			return
		}
		last = percent
		fmt.Fprintf(os.Stderr, "\r%-40s %3d%%", message, percent)
		if percent >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	})
}

var errDegraded = errors.New("cache has failing elements")
