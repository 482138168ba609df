package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-linearcache/pkg/app/inspect"
)

var (
	listForce      bool
	listVerifyData bool
)

var listCmd = &cobra.Command{
	Use:   "list [image]",
	Short: "List cached elements",
	Long: `List the info sector of every element below the header's element count.

Examples:
  # List elements
  lcache list cache.img

  # Also check each element's data checksum
  lcache list cache.img --verify-data

  # List a cache written by another build
  lcache list cache.img --force`,

	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := imageTarget(args)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		progressPrinter(ctx)

		resp, err := inspect.List(ctx, &inspect.ListRequest{
			Target:     target,
			Identity:   ctx.Config.Identity,
			Retries:    retries,
			Force:      listForce,
			VerifyData: listVerifyData,
		})
		if err != nil {
			return err
		}
		return inspect.FormatList(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listForce, "force", "f", false, "list a sealed header whose identity does not match")
	listCmd.Flags().BoolVar(&listVerifyData, "verify-data", false, "check the data CRC of every element")
}
