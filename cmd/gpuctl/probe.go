package main

import (
	"errors"
	"fmt"

	"github.com/openaccel/gpubridge/cuda"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newProbeCmd())
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check whether a usable CUDA driver is present",
		Long: `The probe command loads the platform's CUDA driver library, resolves
the full entry-point table, and initializes the driver. It exits zero only
when a compute-capable device is available.

Example:
  gpuctl probe
  gpuctl probe --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe()
		},
	}
	return cmd
}

func runProbe() error {
	type probeResult struct {
		Bound   bool   `json:"bound"`
		Library string `json:"library,omitempty"`
		Device  string `json:"device,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	report := func(res probeResult, err error) error {
		if jsonOut {
			if jerr := printJSON(res); jerr != nil {
				return jerr
			}
			return err
		}
		return err
	}

	b, err := cuda.Bind()
	if err != nil {
		var be *cuda.BindingError
		if errors.As(err, &be) && be.Symbol != "" {
			printVerbose("driver library %s is missing symbol %s\n", be.Library, be.Symbol)
		}
		return report(probeResult{Error: err.Error()}, fmt.Errorf("driver binding failed: %w", err))
	}
	printVerbose("bound driver library: %s\n", b.Library())

	s, err := cuda.NewSession(b)
	if err != nil {
		res := probeResult{Bound: true, Library: b.Library(), Error: err.Error()}
		var nd *cuda.NoDeviceError
		if errors.As(err, &nd) {
			return report(res, errors.New("driver bound, but no compute-capable device is present"))
		}
		return report(res, fmt.Errorf("driver initialization failed: %w", err))
	}

	res := probeResult{Bound: true, Library: b.Library(), Device: s.Name()}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("OK: %s on %s\n", s.Name(), b.Library())
	return nil
}
