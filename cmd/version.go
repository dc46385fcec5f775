package cmd

import (
	"fmt"
	"io"
	"runtime"
)

// printVersionInfo writes build metadata to w.
func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "ai-chatbot %s\n", AppVersion)
	fmt.Fprintf(w, "  build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
