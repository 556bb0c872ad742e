package main

import (
	"os"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd()))
}
