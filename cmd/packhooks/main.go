package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/packhooks/cmd/packhooks/commands"
	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := commands.NewGlobal()
	parser := kong.Parse(cli,
		kong.Name("packhooks"),
		kong.Description("Package libraries through a hookable six-stage pipeline"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	err := parser.Run(global, cli)
	perrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
