// Command what2wear is the virtual try-on stylist: an HTTP API plus
// one-shot commands for each operation.
package main

import (
	"fmt"
	"os"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor("error:"), err)
		os.Exit(1)
	}
}
