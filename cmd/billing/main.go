// Package main is the entry point for the billing engine.
package main

import "github.com/abelcubano/main-project/internal/cli"

func main() {
	cli.Execute()
}
