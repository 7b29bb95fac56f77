package main

import (
	"fmt"
	"os"
	"time"

	"github.com/borsdorff/balsa"
	"github.com/spf13/cobra"
)

type importanceCmdConfig struct {
	*rootCmdConfig
	threads int
	preload int
	repeats int
	seed    int64
}

func importanceCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importanceCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "featureimportance [options] <model-file> <data-file> <label-file>",
		Short: "Measure per-feature importance of a trained model",
		Long:  `Estimate how much each feature contributes to the accuracy of a trained forest by shuffling one feature column at a time and measuring the drop in accuracy.`,
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			modelFile, dataFile, labelFile := args[0], args[1], args[2]

			data, err := balsa.ReadMatrix(dataFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			labels, err := balsa.ReadLabels(labelFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}

			kind, err := balsa.ModelKind(modelFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Analyzing feature importance...")
			start := time.Now()
			var importances []float64
			switch kind {
			case "float32":
				importances, err = runImportance[float32](config, modelFile, balsa.MatrixData(data), labels)
			default:
				importances, err = runImportance[float64](config, modelFile, balsa.MatrixData(data), labels)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			config.Logf("Done (%.3fs)", time.Since(start).Seconds())

			fmt.Println("Feature    Importance")
			for f, imp := range importances {
				fmt.Printf("%7d  %12.6f\n", f, imp)
			}
		},
	}
	cmd.PersistentFlags().IntVarP(&(config.threads), "threads", "t", 1, "number of threads")
	cmd.PersistentFlags().IntVarP(&(config.preload), "preload", "p", 1, "number of trees to preload from the model")
	cmd.PersistentFlags().IntVarP(&(config.repeats), "repeats", "r", 5, "number of shuffles per feature")
	cmd.PersistentFlags().Int64VarP(&(config.seed), "seed", "s", time.Now().UnixNano(), "random seed for the shuffles (default: a random value)")
	return cmd
}

func (icc *importanceCmdConfig) Validate() error {
	if icc.threads < 1 {
		return fmt.Errorf("thread count must be at least 1")
	}
	if icc.repeats < 1 {
		return fmt.Errorf("repeat count must be positive")
	}
	return nil
}

func runImportance[F balsa.Feature](config *importanceCmdConfig, modelFile string, data []float64, labels []balsa.Label) ([]float64, error) {
	stream, err := balsa.OpenModel[F](modelFile, config.preload)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	points := make([]F, len(data))
	for i, v := range data {
		points[i] = F(v)
	}

	ensemble := balsa.NewEnsembleClassifier[F](stream, config.threads-1)
	return balsa.FeatureImportance(ensemble, points, labels, config.repeats, config.seed)
}
