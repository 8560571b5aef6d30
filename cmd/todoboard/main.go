package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	return rootCmd.Execute()
}
