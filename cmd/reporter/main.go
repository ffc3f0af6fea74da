package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCMD().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var cfgPath string
	var root = &cobra.Command{
		Use:           "reporter",
		Short:         "Turn a question into a researched report",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(runCMD(&cfgPath), recoveryCMD(&cfgPath))
	return root
}
