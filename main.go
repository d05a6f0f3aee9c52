package main

import "github.com/murexstreams/murex/internal/cli"

func main() {
	cli.Execute()
}
