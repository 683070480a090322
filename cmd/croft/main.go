package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "croft",
		Short:        "VM inventory tracking server",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newProbeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
