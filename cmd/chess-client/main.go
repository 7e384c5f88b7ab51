package main

import (
	"fmt"
	"os"

	"github.com/BaitAPI/ChessDestroyer/internal/obslog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		obslog.Sync()
		os.Exit(1)
	}
	obslog.Sync()
}

func run() error {
	root := Root()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}
