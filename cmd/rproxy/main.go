package main

import (
	"os"

	"github.com/baaaaaaaka/rproxy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
