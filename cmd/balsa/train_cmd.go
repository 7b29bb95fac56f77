package main

import (
	"fmt"
	"os"
	"time"

	"github.com/borsdorff/balsa"
	"github.com/spf13/cobra"
)

type trainCmdConfig struct {
	*rootCmdConfig
	threads   int
	maxDepth  int
	minPurity float64
	treeCount int
	seed      int64
	features  int
	graphviz  bool
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train [options] <data-file> <label-file> <model-file>",
		Short: "Train a random forest on a data and label table",
		Long:  `Train a random forest from a .npy feature table and a .npy label column, and write the forest to a model file.`,
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			dataFile, labelFile, modelFile := args[0], args[1], args[2]

			start := time.Now()
			config.Logf("Ingesting data...")
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
			pointCount, featureCount := data.Dims()
			if pointCount != len(labels) {
				fmt.Fprintf(os.Stderr, "data file and label file have different row counts (%d and %d)\n", pointCount, len(labels))
				os.Exit(3)
			}
			config.Logf("Dataset loaded: %d points, %d features (%.3fs)", pointCount, featureCount, time.Since(start).Seconds())

			classCount := 0
			for _, l := range labels {
				if int(l) >= classCount {
					classCount = int(l) + 1
				}
			}

			config.Logf("Max. Depth       : %d", config.maxDepth)
			config.Logf("Min. Purity      : %g", config.minPurity)
			config.Logf("Tree Count       : %d", config.treeCount)
			config.Logf("Threads          : %d", config.threads)
			config.Logf("Feat. to Consider: %d", config.features)
			config.Logf("Random Seed      : %d", config.seed)

			writer, err := balsa.CreateModel[float64](modelFile, classCount, featureCount)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			defer writer.Close()

			graphvizPrefix := ""
			if config.graphviz {
				graphvizPrefix = "tree"
			}
			trainer := balsa.NewTrainer[float64](balsa.TrainerParams{
				FeaturesToConsider: config.features,
				MaxDepth:           config.maxDepth,
				ImpurityThreshold:  impurityThreshold(config.minPurity),
				TreeCount:          config.treeCount,
				ThreadCount:        config.threads,
				Seed:               config.seed,
				GraphvizPrefix:     graphvizPrefix,
			})

			config.Logf("Training...")
			start = time.Now()
			if err := trainer.Train(balsa.MatrixData(data), labels, featureCount, writer); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			if err := writer.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}
			config.Logf("Done (%.3fs)", time.Since(start).Seconds())
		},
	}
	cmd.PersistentFlags().IntVarP(&(config.threads), "threads", "t", 1, "number of threads")
	cmd.PersistentFlags().IntVarP(&(config.maxDepth), "max-depth", "d", 0, "maximum tree depth (0 = unlimited)")
	cmd.PersistentFlags().Float64VarP(&(config.minPurity), "min-purity", "p", 1.0, "minimum Gini purity of nodes that stop growing")
	cmd.PersistentFlags().IntVarP(&(config.treeCount), "tree-count", "c", 150, "number of trees")
	cmd.PersistentFlags().Int64VarP(&(config.seed), "seed", "s", time.Now().UnixNano(), "random seed (default: a random value)")
	cmd.PersistentFlags().IntVarP(&(config.features), "features", "f", 0, "number of randomly selected features to consider per split (0 = floor(sqrt(feature count)))")
	cmd.PersistentFlags().BoolVarP(&(config.graphviz), "graphviz", "g", false, "render a Graphviz figure of every tree")
	return cmd
}

func (tcc *trainCmdConfig) Validate() error {
	if tcc.treeCount < 1 {
		return fmt.Errorf("tree count must be at least 1")
	}
	if tcc.threads < 1 {
		return fmt.Errorf("thread count must be at least 1")
	}
	if tcc.minPurity < 0 || tcc.minPurity > 1 {
		return fmt.Errorf("minimum purity must lie in [0, 1]")
	}
	return nil
}

// impurityThreshold maps the user-facing minimum purity to the internal
// impurity cutoff: a node that has reached the requested purity, i.e.
// whose impurity is at most 1 - minPurity, stops growing.
func impurityThreshold(minPurity float64) float64 {
	threshold := 1.0 - minPurity
	if threshold < 0 {
		return 0
	}
	if threshold > 1 {
		return 1
	}
	return threshold
}
