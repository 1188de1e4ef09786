package main

import "github.com/vsinha/mrpbom/pkg/interfaces/cli/commands"

func main() {
	commands.Execute()
}
