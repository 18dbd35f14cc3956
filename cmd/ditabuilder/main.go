package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ditabuilder/cmd/ditabuilder/commands"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Stdout: os.Stdout, Stderr: os.Stderr}
	ctx := kong.Parse(&cli,
		kong.Name("ditabuilder"),
		kong.Description("Run DITA-OT transformations and check DITA content integrity."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global, &cli),
	)

	err := ctx.Run()
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
