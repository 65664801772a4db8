package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config) {
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 70
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` 8888888b.  8888888888 888888b.        d8888 888`,
		` 888   Y88b 888        888  "88b      d88888 888`,
		` 888    888 888        888  .88P     d88P888 888`,
		` 888   d88P 8888888    8888888K.    d88P 888 888`,
		` 8888888P"  888        888  "Y88b  d88P  888 888`,
		` 888 T88b   888        888    888 d88P   888 888`,
		` 888  T88b  888        888   d88P d8888888888 888`,
		` 888   T88b 8888888888 8888888P" d88P     888 88888888`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  Portfolio Auto-Invest Engine%s\n\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	kvPad := 16
	kvLines := [][2]string{
		{"Version", GetVersion()},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Service", serviceURL},
		{"Gateway", config.Gateway.BaseURL},
		{"Quote", config.Currency.Quote},
		{"Secondary", config.Currency.Secondary},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "  %s%-*s%s%s\n", banner.ColorCyan, kvPad, kv[0], banner.ColorReset, kv[1])
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
}
