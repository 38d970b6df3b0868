package main

import (
	"fmt"
	"os"

	"github.com/stratastor/zfskit/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zfskit: %v\n", err)
		os.Exit(1)
	}
}
