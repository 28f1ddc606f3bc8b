package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	transformLocal  bool
	transformFormat string
)

var transformCmd = &cobra.Command{
	Use:   "transform FILE.xlsx",
	Short: "Parse a Barangays/Sites workbook into a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(cmd.Context(), cfg, args[0], transformLocal)
		if err != nil {
			return err
		}

		zap.L().Info("workbook transformed",
			zap.Int("sites", len(ds.Sites.Locations)),
			zap.Int("barangays", len(ds.Barangays.Locations)),
		)
		return writeFormatted(cmd.OutOrStdout(), ds, transformFormat)
	},
}

func init() {
	transformCmd.Flags().BoolVar(&transformLocal, "local", false, "parse the workbook locally instead of uploading it")
	transformCmd.Flags().StringVar(&transformFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(transformCmd)
}
