package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/pouriaamini/kvs/internal/engine"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, engine.ErrKeyNotFound) {
			fmt.Fprintln(os.Stderr, "Key not found")
		} else {
			fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		}
		os.Exit(1)
	}
}
