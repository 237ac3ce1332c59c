package main

import (
	"context"
	"os"

	"media-json/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}
