package main

import (
	"os"

	"lanpan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
