package main

import (
	"fmt"
	"os"
	"time"

	"github.com/borsdorff/balsa"
	"github.com/spf13/cobra"
)

type classifyCmdConfig struct {
	*rootCmdConfig
	threads int
	preload int
	output  string
}

func classifyCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &classifyCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "classify [options] <model-file> <data-file>",
		Short: "Classify a data table with a trained model",
		Long:  `Apply a trained random forest to a .npy feature table. Predicted labels go to stdout, or to a .npy file with --output.`,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if config.threads < 1 {
				fmt.Fprintln(os.Stderr, "thread count must be at least 1")
				os.Exit(1)
			}
			modelFile, dataFile := args[0], args[1]

			data, err := balsa.ReadMatrix(dataFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}

			kind, err := balsa.ModelKind(modelFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			var labels []balsa.Label
			switch kind {
			case "float32":
				labels, err = runClassify[float32](config, modelFile, balsa.MatrixData(data))
			default:
				labels, err = runClassify[float64](config, modelFile, balsa.MatrixData(data))
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}

			if config.output != "" {
				if err := balsa.WriteLabels(config.output, labels); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(5)
				}
				return
			}
			for _, l := range labels {
				fmt.Println(l)
			}
		},
	}
	cmd.PersistentFlags().IntVarP(&(config.threads), "threads", "t", 1, "number of threads")
	cmd.PersistentFlags().IntVarP(&(config.preload), "preload", "p", 1, "number of trees to preload from the model")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path of a .npy file for the predicted labels (defaults to stdout)")
	return cmd
}

// runClassify opens the model under the feature type it was trained with
// and classifies the points, which are converted from the float64 the
// table loader produces.
func runClassify[F balsa.Feature](config *classifyCmdConfig, modelFile string, data []float64) ([]balsa.Label, error) {
	stream, err := balsa.OpenModel[F](modelFile, config.preload)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	points := make([]F, len(data))
	for i, v := range data {
		points[i] = F(v)
	}

	// The main goroutine feeds the workers, so it is not counted.
	ensemble := balsa.NewEnsembleClassifier[F](stream, config.threads-1)
	start := time.Now()
	labels, err := ensemble.Classify(points)
	if err != nil {
		return nil, err
	}
	config.Logf("Classified %d points (%.3fs)", len(labels), time.Since(start).Seconds())
	return labels, nil
}
