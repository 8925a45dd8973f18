// Command httptimer measures the lifecycle phases of HTTP requests: DNS,
// connect, TLS, upload, time to first byte and download.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
