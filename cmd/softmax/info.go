package main

import (
	"fmt"
	"runtime"

	"github.com/born-ml/onlinesoftmax/internal/parallel"
	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show host CPU features and worker defaults",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "NumCPU:      %d\n", runtime.NumCPU())
			fmt.Fprintf(w, "GOMAXPROCS:  %d\n", runtime.GOMAXPROCS(0))
			fmt.Fprintf(w, "Workers:     %d (default)\n", parallel.DefaultConfig().NumWorkers)

			switch runtime.GOARCH {
			case "amd64":
				fmt.Fprintln(w, "=== golang.org/x/sys/cpu.X86 ===")
				fmt.Fprintf(w, "  HasAVX2:     %v\n", cpu.X86.HasAVX2)
				fmt.Fprintf(w, "  HasFMA:      %v\n", cpu.X86.HasFMA)
				fmt.Fprintf(w, "  HasAVX512F:  %v\n", cpu.X86.HasAVX512F)
				fmt.Fprintf(w, "  HasAVX512BW: %v\n", cpu.X86.HasAVX512BW)
			case "arm64":
				fmt.Fprintln(w, "=== golang.org/x/sys/cpu.ARM64 ===")
				fmt.Fprintf(w, "  HasASIMD:    %v (NEON baseline)\n", cpu.ARM64.HasASIMD)
				fmt.Fprintf(w, "  HasFPHP:     %v (FP16 scalar)\n", cpu.ARM64.HasFPHP)
				fmt.Fprintf(w, "  HasASIMDHP:  %v (FP16 NEON)\n", cpu.ARM64.HasASIMDHP)
				fmt.Fprintf(w, "  HasSVE:      %v\n", cpu.ARM64.HasSVE)
			}
		},
	}
}
