package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-linearcache/pkg/app/inspect"
)

var (
	extractIndex     uint32
	extractDest      string
	extractOverwrite bool
	extractForce     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [image]",
	Short: "Copy one cached element to a file",
	Long: `Copy the data of one cached element out of the image. When the destination
is a directory the file is named after the element's mirror path.

Examples:
  # Extract element 3 into the current directory
  lcache extract cache.img --index 3 --dest .

  # Extract an element whose checksum fails
  lcache extract cache.img --index 0 --dest font.bin --force --overwrite`,

	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := imageTarget(args)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		resp, err := inspect.Extract(ctx, &inspect.ExtractRequest{
			Target:    target,
			Identity:  ctx.Config.Identity,
			Retries:   retries,
			Index:     extractIndex,
			Dest:      extractDest,
			Overwrite: extractOverwrite,
			Force:     extractForce,
		})
		if err != nil {
			return err
		}
		return inspect.FormatExtract(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Uint32VarP(&extractIndex, "index", "i", 0, "element index")
	extractCmd.Flags().StringVarP(&extractDest, "dest", "d", "", "destination file or directory (required)")
	extractCmd.MarkFlagRequired("dest")
	extractCmd.Flags().BoolVar(&extractOverwrite, "overwrite", false, "replace an existing destination file")
	extractCmd.Flags().BoolVarP(&extractForce, "force", "f", false, "extract despite checksum or identity failures")
}
