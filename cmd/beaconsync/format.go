package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatCount groups digits, e.g. 7,056,000.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%.6fs", sec)
}

func formatFileSize(path string) string {
	size, err := statSize(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.IBytes(uint64(size))
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
