// Command x2notion saves X/Twitter posts and threads into a Notion database.
package main

import (
	"os"

	"github.com/ibeckermayer/x2notion/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
