package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

// JobsCmd implements the 'jobs' command.
type JobsCmd struct{}

func (j *JobsCmd) Run(g *Global) error {
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSELECTOR\tHOOKS\tDESCRIPTION")
	for _, id := range g.Jobs.Types() {
		meta, err := g.Jobs.Lookup(id)
		if err != nil {
			return err
		}
		desc := meta.Description
		if meta.ManagesOwnWatch {
			desc += " (manages its own watch)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, meta.Selector, hookSummary(meta.Hooks), desc)
	}
	return tw.Flush()
}

// hookSummary renders the phases a hook configuration fills, in stage order.
func hookSummary(cfg hooks.HooksConfig) string {
	var parts []string
	for _, stage := range hooks.Stages() {
		tp, ok := cfg[stage]
		if !ok {
			continue
		}
		p := hooks.Normalize(tp)
		for _, ph := range []struct {
			name hooks.Phase
			n    int
		}{{hooks.PhaseBefore, len(p.Before)}, {hooks.PhaseReplace, len(p.Replace)}, {hooks.PhaseAfter, len(p.After)}} {
			if ph.n > 0 {
				parts = append(parts, fmt.Sprintf("%s/%s", stage, ph.name))
			}
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// ProvidersCmd implements the 'providers' command.
type ProvidersCmd struct{}

func (p *ProvidersCmd) Run(g *Global) error {
	for _, name := range g.Providers.Names() {
		fmt.Fprintln(g.Out, name)
	}
	return nil
}

// StagesCmd implements the 'stages' command.
type StagesCmd struct{}

func (s *StagesCmd) Run(g *Global) error {
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTAGE\tSCOPE")
	for i, stage := range hooks.Stages() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, stage, stage.Scope())
	}
	return tw.Flush()
}
