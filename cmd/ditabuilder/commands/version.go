package commands

import "git.home.luguber.info/inful/ditabuilder/internal/version"

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(g *Global) error {
	printf(g.Stdout, "%s\n", version.String())
	return nil
}
