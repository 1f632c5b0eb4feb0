package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/packhooks/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if i.Output != "" {
		path = filepath.Join(i.Output, config.DefaultFile)
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "Wrote configuration to %s\n", path)
	return nil
}
