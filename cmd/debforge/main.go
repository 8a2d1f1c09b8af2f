package main

import "debforge/internal/cli"

func main() {
	cli.Execute()
}
