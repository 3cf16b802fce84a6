package main

import (
	"os"

	"github.com/xenking/catering-quote/cmd/quotectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
