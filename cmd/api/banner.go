package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/ternarybob/banner"

	"supplierhub/internal/config"
)

func printBanner(cfg *config.Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset
	serviceURL := fmt.Sprintf("http://localhost:%d", cfg.Port)

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	fmt.Fprintf(os.Stderr, "%s  SUPPLIER PORTAL API%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s  Phone OTP sign-in for registered suppliers%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	for _, kv := range [][2]string{
		{"Environment", cfg.Environment},
		{"Service URL", serviceURL},
		{"Database", cfg.Mongo.Database},
		{"Blacklist", cfg.Cleanup.BlacklistBackend},
	} {
		fmt.Fprintf(os.Stderr, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	log.Info().
		Str("environment", cfg.Environment).
		Str("service_url", serviceURL).
		Str("database", cfg.Mongo.Database).
		Msg("Application started")
}

func printShutdownBanner() {
	hr := banner.ColorCyan + strings.Repeat("═", 30) + banner.ColorReset
	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  SUPPLIER PORTAL API STOPPED%s\n", banner.ColorBold+banner.ColorWhite, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)
}
