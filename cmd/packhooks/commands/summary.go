package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"

	"git.home.luguber.info/inful/packhooks/internal/build"
)

// printSummary writes a short human-readable report of a build result.
func printSummary(w io.Writer, res *build.BuildResult, err error) {
	if res == nil {
		return
	}
	var status string
	switch res.Status {
	case build.BuildStatusSuccess:
		status = color.Green.Sprint("success")
	case build.BuildStatusCancelled:
		status = color.Yellow.Sprint("cancelled")
	default:
		status = color.Red.Sprint("failed")
	}

	fmt.Fprintf(w, "%s %s (%s) in %s\n", color.Bold.Sprint("build"), status, res.Mode, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  build id: %s\n", res.BuildID)
	if len(res.Selectors) > 0 {
		fmt.Fprintf(w, "  jobs:     %s\n", strings.Join(res.Selectors, ", "))
	}
	if len(res.HookedStages) > 0 {
		names := make([]string, len(res.HookedStages))
		for i, s := range res.HookedStages {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "  hooked:   %s\n", strings.Join(names, " -> "))
	}
	if res.SelfManagedWatch {
		fmt.Fprintf(w, "  %s\n", color.Cyan.Sprint("watch is managed by a registered job"))
	}
	if err != nil {
		fmt.Fprintf(w, "  %s %v\n", color.Red.Sprint("error:"), err)
	}
}
