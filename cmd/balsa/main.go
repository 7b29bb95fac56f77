package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
}

func (c *rootCmdConfig) Logf(format string, a ...interface{}) {
	logger(c.verbose).Logf(format, a...)
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "balsa",
		Short: "balsa trains and applies random forest classifiers",
		Long:  `A tool to train random forests on tabular data, classify unseen points with them, and measure per-feature importance.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !config.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "")
	rootCmd.AddCommand(trainCmd(config), classifyCmd(config), importanceCmd(config))
	return rootCmd
}
