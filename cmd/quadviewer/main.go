package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"quadviewer/internal/app"
	"quadviewer/internal/config"
)

var (
	configPath  = flag.String("config", config.DefaultPath, "configuration file (JSON or YAML)")
	variantName = flag.String("variant", "", "shader variant: camera or passthrough")
	logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	cfg := config.Get()
	if *configPath != config.DefaultPath {
		if err := config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Get()
	}
	if *variantName != "" {
		config.SetVariant(*variantName)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	fmt.Println("Quad Viewer - WebGPU")
	fmt.Println("Controls:")
	fmt.Println("  WASD / Arrows : Move camera")
	fmt.Println("  E / Q         : Move up / down")
	fmt.Println("  Mouse wheel   : Zoom")
	fmt.Println("  Space         : Next texture")
	fmt.Println("  + / -         : Faster / slower")
	fmt.Println("  Escape        : Exit")
	fmt.Println()

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer application.Cleanup()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
