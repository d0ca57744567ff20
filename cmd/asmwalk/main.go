package main

import "asmwalk/internal/cli"

func main() {
	cli.Execute()
}
