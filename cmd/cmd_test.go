package cmd

import (
	"strings"
	"testing"
)

func TestPrintVersionInfo(t *testing.T) {
	var sb strings.Builder
	printVersionInfo(&sb)

	out := sb.String()
	for _, want := range []string{"ai-chatbot", AppVersion, "go version"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHelp(t *testing.T) {
	var sb strings.Builder
	printHelp(&sb)

	out := sb.String()
	for _, want := range []string{"serve", "serve-tools", "version"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
}
