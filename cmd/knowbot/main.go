package main

import (
	"os"

	"github.com/brokerhub/knowbot/internal/adapters/driving/cli"
)

// version is stamped by the linker at release time.
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
