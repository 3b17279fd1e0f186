package main

import "github.com/guidoenr/wizsync/internal/cli"

func main() {
	cli.Execute()
}
