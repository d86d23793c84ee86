// Command picker runs the iterative onset picker on waveform files and
// manages the sqlite database of stored runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
