// Command jsonguard asks a completion provider for a JSON record and retries
// until the reply parses and matches the configured schema.
package main

import (
	"os"

	"github.com/leofalp/jsonguard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
