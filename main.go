// Command itemscan detects item icons in game screenshots and calibrates the
// detection pipeline against labeled fixtures.
//
// Usage:
//
//	itemscan detect -catalog items.json shot1.png shot2.png
//	itemscan detect -catalog items.json -screen -watch 2s
//	itemscan calibrate -catalog items.json -truth truth.json -out calibration-out
//	itemscan params
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "itemscan:", err)
		}
		stop()
		os.Exit(1)
	}
}
