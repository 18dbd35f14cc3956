package commands

import (
	"git.home.luguber.info/inful/ditabuilder/internal/classpath"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

// ClasspathCmd implements the 'classpath' command.
type ClasspathCmd struct {
	Home  string `help:"Toolkit installation directory (overrides toolkit.home)" type:"path"`
	Lines bool   `short:"l" help:"Print one entry per line instead of a joined classpath"`
}

func (c *ClasspathCmd) Run(g *Global, root *CLI) error {
	home := c.Home
	if home == "" {
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		home = cfg.Toolkit.Home
	}
	if home == "" {
		return errors.ValidationError("toolkit home is required").
			WithRemedy("pass --home or set toolkit.home").Build()
	}

	cp, err := classpath.Resolve(home)
	if err != nil {
		return err
	}
	if !c.Lines {
		printf(g.Stdout, "%s\n", cp.String())
		return nil
	}
	for _, entry := range cp.Entries {
		printf(g.Stdout, "%s\n", entry)
	}
	for _, skipped := range cp.Skipped {
		printf(g.Stderr, "skipped: %s\n", skipped)
	}
	return nil
}
