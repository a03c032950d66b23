// Package main 启动 drivemini.
package main

import (
	"os"

	"github.com/yeisme/drivemini/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
