package main

import "ragquery/internal/cli"

func main() {
	cli.Execute()
}
