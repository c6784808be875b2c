package main

import (
	"os"

	"github.com/mentisVeritas/tg-bot-answer-checker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
