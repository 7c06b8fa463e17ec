package main

import "github.com/terra-clan/dsa-tracker/internal/cli"

func main() {
	cli.Execute()
}
