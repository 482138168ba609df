package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-linearcache/pkg/app/inspect"
)

var headerCmd = &cobra.Command{
	Use:   "header [image]",
	Short: "Show the cache header and its checks",
	Long: `Decode sector 0 of the cache volume and check it against the configured
identity. The image is opened read-only.

Examples:
  lcache header cache.img
  lcache header cache.img -o json`,

	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := imageTarget(args)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		resp, err := inspect.Header(ctx, &inspect.HeaderRequest{
			Target:   target,
			Identity: ctx.Config.Identity,
			Retries:  retries,
		})
		if err != nil {
			return err
		}
		return inspect.FormatHeader(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(headerCmd)
}
