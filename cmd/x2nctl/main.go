// Command x2nctl is a dev CLI for x2notion maintenance and debugging tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	browseropts "github.com/ibeckermayer/x2notion/internal/browser"
	"github.com/ibeckermayer/x2notion/internal/config"
	"github.com/ibeckermayer/x2notion/internal/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "bot-test":
		runBotTest()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: x2nctl open <config|cache|capture>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: x2nctl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  bot-test       Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  open config    Open config file in default editor")
	fmt.Println("  open cache     Open cache directory in file explorer")
	fmt.Println("  open capture   Open the latest captured page snapshot")
}

func runBotTest() {
	log.Info().Msg("opening bot.sannysoft.com with stealth browser options")

	ctx, cancel := browseropts.Launch(context.Background(), browseropts.Settings{Headless: false})
	defer cancel()

	go func() {
		if err := chromedp.Run(ctx, chromedp.Navigate("https://bot.sannysoft.com")); err != nil {
			log.Error().Err(err).Msg("failed to navigate")
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "capture":
		path, err = latestCapture()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("failed to get path")
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to open")
	}
}

func latestCapture() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return store.NewSnapshots(filepath.Join(dir, store.SnapshotDirName)).LatestFile(store.StepCapture)
}
