package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/meshwatch/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional, defaults to ~/.config/meshwatch/config.toml)")
	prefsPath := flag.String("prefs", "", "override prefs path (optional)")
	controllerAddr := flag.String("controller", "", "controller host[:port] or URL (overrides config and MESHWATCH_CONTROLLER)")
	headless := flag.Bool("headless", false, "log mesh state as JSON instead of starting the dashboard")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Controller: *controllerAddr,
		Headless:   *headless,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "meshwatch: %v\n", err)
		return 1
	}
	return 0
}
