package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// 建置時以 -ldflags "-X main.Version=..." 覆寫
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("video-recipe-generator %s\n", Version)
		fmt.Printf("  Go:     %s\n", runtime.Version())
		fmt.Printf("  Commit: %s\n", GitCommit)
	},
}
