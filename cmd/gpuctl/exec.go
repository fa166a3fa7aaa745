package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/openaccel/gpubridge/cuda"
	"github.com/spf13/cobra"
)

var execFlags struct {
	entry      string
	blockX     int
	blockY     int
	blockZ     int
	returnKind string
}

func init() {
	rootCmd.AddCommand(newExecCmd())
}

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <kernel-image> [arg...]",
		Short: "Compile and launch a kernel image",
		Long: `The exec command loads a kernel image (PTX or other driver-compilable
text) through the driver's online compiler, launches the named entry
function, blocks until it completes, and prints the typed return value.

Positional arguments after the image path are integers packed into the
kernel's argument buffer as 64-bit little-endian words. For non-void
returns one trailing pointer-width slot is appended for the device
return-buffer address.

Example:
  gpuctl exec add.ptx 2 3 --entry add --return int
  gpuctl exec probe.ptx --entry warm_up --return void --block-x 32`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(args)
		},
	}
	cmd.Flags().StringVar(&execFlags.entry, "entry", "", "Entry function name (required)")
	cmd.Flags().IntVar(&execFlags.blockX, "block-x", 1, "Block dimension X")
	cmd.Flags().IntVar(&execFlags.blockY, "block-y", 1, "Block dimension Y")
	cmd.Flags().IntVar(&execFlags.blockZ, "block-z", 1, "Block dimension Z")
	cmd.Flags().StringVar(&execFlags.returnKind, "return", "void",
		"Return kind: void, int, boolean, float, double, long, object")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}

// parseReturnKind maps the flag spelling to a typed return slot.
func parseReturnKind(s string) (cuda.ReturnKind, error) {
	switch s {
	case "void":
		return cuda.ReturnVoid, nil
	case "int":
		return cuda.ReturnInt, nil
	case "boolean", "bool":
		return cuda.ReturnBoolean, nil
	case "float":
		return cuda.ReturnFloat, nil
	case "double":
		return cuda.ReturnDouble, nil
	case "long":
		return cuda.ReturnLong, nil
	case "object":
		return cuda.ReturnObject, nil
	default:
		return cuda.ReturnVoid, fmt.Errorf("unknown return kind %q", s)
	}
}

// packArgs renders the integer arguments as 64-bit little-endian words,
// with one extra word reserved for the return-buffer address when the
// kernel returns a value.
func packArgs(args []string, kind cuda.ReturnKind) ([]byte, error) {
	words := len(args)
	if kind != cuda.ReturnVoid {
		words++
	}
	buf := make([]byte, words*8)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf, nil
}

func runExec(args []string) error {
	kind, err := parseReturnKind(execFlags.returnKind)
	if err != nil {
		return err
	}

	imagePath := args[0]
	code, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read kernel image: %w", err)
	}
	printVerbose("read kernel image: %s (%d bytes)\n", imagePath, len(code))

	argBuf, err := packArgs(args[1:], kind)
	if err != nil {
		return err
	}

	b, err := cuda.Bind()
	if err != nil {
		return fmt.Errorf("driver binding failed: %w", err)
	}
	s, err := cuda.NewSession(b)
	if err != nil {
		return fmt.Errorf("device discovery failed: %w", err)
	}
	e := cuda.NewExecutor(s)

	k, err := e.GenerateKernel(code, execFlags.entry)
	if err != nil {
		var ce *cuda.CompileError
		if errors.As(err, &ce) && ce.Log != "" {
			fmt.Fprintln(os.Stderr, ce.Log)
		}
		return fmt.Errorf("kernel compilation failed: %w", err)
	}

	block := cuda.Dim3{
		X: uint32(execFlags.blockX),
		Y: uint32(execFlags.blockY),
		Z: uint32(execFlags.blockZ),
	}
	v, err := e.ExecuteWarp(block, k, argBuf, kind)
	if err != nil {
		return fmt.Errorf("kernel execution failed: %w", err)
	}

	switch kind {
	case cuda.ReturnVoid:
		printInfo("ok\n")
	case cuda.ReturnInt:
		printInfo("%d\n", v.Int())
	case cuda.ReturnBoolean:
		printInfo("%t\n", v.Bool())
	case cuda.ReturnFloat:
		printInfo("%g\n", v.Float())
	case cuda.ReturnDouble:
		printInfo("%g\n", v.Double())
	case cuda.ReturnLong:
		printInfo("%d\n", v.Long())
	case cuda.ReturnObject:
		printInfo("0x%x\n", v.Ref())
	}
	return nil
}
