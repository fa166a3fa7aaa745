package main

import (
	"fmt"

	"github.com/openaccel/gpubridge/cuda"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Report the selected device's capabilities",
		Long: `The info command initializes the driver, selects device 0, and reports
its name, unified-addressing support, and derived total core count.

Example:
  gpuctl info
  gpuctl info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

func runInfo() error {
	b, err := cuda.Bind()
	if err != nil {
		return fmt.Errorf("driver binding failed: %w", err)
	}
	s, err := cuda.NewSession(b)
	if err != nil {
		return fmt.Errorf("device discovery failed: %w", err)
	}

	cores := s.TotalCores()

	if jsonOut {
		return printJSON(map[string]interface{}{
			"library":           b.Library(),
			"device":            s.Name(),
			"unifiedAddressing": s.UnifiedAddressing(),
			"totalCores":        cores,
		})
	}

	printInfo("\nDevice Information:\n")
	printInfo("  Library: %s\n", b.Library())
	printInfo("  Name: %s\n", s.Name())
	printInfo("  Unified addressing: %t\n", s.UnifiedAddressing())
	if cores > 0 {
		printInfo("  Total cores: %d\n", cores)
	} else {
		printInfo("  Total cores: unknown architecture\n")
	}
	return nil
}
