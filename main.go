package main

import "github.com/brogergvhs/novelpipe/cmd"

func main() {
	cmd.Execute()
}
