package main

import "github.com/helix-works/skillflow/cmd"

func main() {
	cmd.Execute()
}
