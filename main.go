package main

import (
	"os"

	"github.com/hibiki-social/hibiki/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
