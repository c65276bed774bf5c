package main

import (
	"os"

	"vincit.fi/jpeg-rotator/ui/cli"
)

func main() {
	os.Exit(cli.Execute())
}
