package main

import (
	"os"

	"github.com/sadopc/focusassist/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cmd.Execute()
}
