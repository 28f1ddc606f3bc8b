package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/backend"
	"github.com/sells-group/siteopt/internal/mapview"
)

var (
	calcSites    int
	calcLocal    bool
	calcMethod   string
	calcDistance string
	calcScene    string
)

var calculateCmd = &cobra.Command{
	Use:   "calculate FILE.xlsx",
	Short: "Select vaccination sites and assign every barangay to the nearest one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		method := calcMethod
		if method == "" {
			method = cfg.Optimize.Method
		}
		m, err := backend.ParseMethod(method)
		if err != nil {
			return err
		}
		formula := calcDistance
		if formula == "" {
			formula = cfg.Optimize.DistanceFormula
		}
		f, err := backend.ParseDistanceFormula(formula)
		if err != nil {
			return err
		}

		ds, err := loadDataset(ctx, cfg, args[0], calcLocal)
		if err != nil {
			return err
		}

		req := backend.NewOptimizeRequest(*ds, calcSites, m, f)
		if err := req.Validate(); err != nil {
			return err
		}
		units, err := ds.Units()
		if err != nil {
			return err
		}

		zap.L().Info("running optimization",
			zap.Int("L", calcSites),
			zap.String("method", string(m)),
			zap.String("distance_formula", string(f)),
			zap.Int("candidates", len(ds.Sites.Locations)),
			zap.Int("barangays", len(units)),
		)

		result, err := newBackendClient(cfg).Optimize(ctx, req)
		if err != nil {
			return err
		}

		scene := mapview.Compose(units, *result, sceneOptions(cfg))

		out := cmd.OutOrStdout()
		formatSites(out, scene.Sites)
		_, _ = fmt.Fprintln(out)
		formatAssignments(out, scene.Rows)

		if calcScene != "" {
			if err := writeSceneFile(calcScene, scene); err != nil {
				return err
			}
			zap.L().Info("scene written", zap.String("path", calcScene))
		}
		return nil
	},
}

func init() {
	calculateCmd.Flags().IntVar(&calcSites, "sites", 0, "number of vaccination sites to select (L)")
	calculateCmd.Flags().BoolVar(&calcLocal, "local", false, "parse the workbook locally instead of uploading it")
	calculateCmd.Flags().StringVar(&calcMethod, "method", "", "numerical or genetic (default from config)")
	calculateCmd.Flags().StringVar(&calcDistance, "distance", "", "road, euclidean or time (default from config)")
	calculateCmd.Flags().StringVar(&calcScene, "scene", "", "write the map scene JSON to this file")
	_ = calculateCmd.MarkFlagRequired("sites")
	rootCmd.AddCommand(calculateCmd)
}
