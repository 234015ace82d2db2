package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules in the pipeline",
	Long: `List the modules in the pipeline, in the order requests pass
through them, with the configuration keys and command line flags each
module contributes.`,
	Run: listModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func listModules(cmd *cobra.Command, args []string) {
	for _, h := range pipeline.Handlers() {
		fmt.Println(h.Name())
		if keys := h.NewConfig().Keys(); len(keys) > 0 {
			fmt.Printf("  config: %s\n", strings.Join(keys, ", "))
		}
		for _, f := range h.Flags() {
			name := "--" + f.Long
			if f.Short != "" {
				name = "-" + f.Short + ", " + name
			}
			fmt.Printf("  flag:   %s  %s\n", name, f.Usage)
		}
	}
}
