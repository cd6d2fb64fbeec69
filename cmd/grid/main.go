// Package main provides the grid CLI and server.
package main

import "github.com/mesh-intelligence/grid/internal/cli"

func main() {
	cli.Execute()
}
