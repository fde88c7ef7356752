package main

import "github.com/mrshanahan/nxcopy/internal/cli"

func main() {
	cli.Execute()
}
