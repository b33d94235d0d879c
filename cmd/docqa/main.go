// Command docqa ingests PDFs and asks questions about them without running the
// HTTP server. It shares configuration and wiring with cmd/server.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
