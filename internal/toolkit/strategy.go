package toolkit

import (
	"os"
	"path/filepath"
	"runtime"

	"git.home.luguber.info/inful/ditabuilder/internal/classpath"
	"git.home.luguber.info/inful/ditabuilder/internal/config"
	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

// Strategy selects how the toolkit process is launched. The set of variants is closed:
// SubprocessScript, InProcessClasspath and HostExec.
type Strategy interface {
	Kind() config.StrategyKind
	// command returns the executable and the arguments placed before toolkit arguments.
	command(home string) (string, []string)
}

// SubprocessScript runs the toolkit's launcher script.
type SubprocessScript struct {
	Script string
}

// InProcessClasspath launches the toolkit's main class directly on the JVM.
type InProcessClasspath struct {
	Java      string
	MainClass string
	Classpath classpath.Classpath
}

// HostExec runs an executable supplied by the host, e.g. a wrapper that provisions the JVM.
type HostExec struct {
	Command    string
	PrefixArgs []string
}

func (SubprocessScript) Kind() config.StrategyKind   { return config.StrategyScript }
func (InProcessClasspath) Kind() config.StrategyKind { return config.StrategyClasspath }
func (HostExec) Kind() config.StrategyKind           { return config.StrategyHost }

func (s SubprocessScript) command(string) (string, []string) { return s.Script, nil }

func (s InProcessClasspath) command(home string) (string, []string) {
	return s.Java, []string{"-cp", s.Classpath.String(), "-Ddita.dir=" + home, s.MainClass}
}

func (s HostExec) command(string) (string, []string) {
	return s.Command, append([]string(nil), s.PrefixArgs...)
}

// SelectStrategy picks the strategy variant named by the configuration and resolves the
// data it carries. The variant depends only on tc.Strategy; resolution fails fast when the
// launcher or plugin registry is missing.
func SelectStrategy(tc config.ToolkitConfig) (Strategy, error) {
	switch tc.Strategy {
	case config.StrategyScript, "":
		script, err := FindScript(tc.Home)
		if err != nil {
			return nil, err
		}
		return SubprocessScript{Script: script}, nil
	case config.StrategyClasspath:
		cp, err := classpath.Resolve(tc.Home)
		if err != nil {
			return nil, err
		}
		java := tc.Java
		if java == "" {
			java = config.DefaultJava
		}
		main := tc.MainClass
		if main == "" {
			main = config.DefaultMainClass
		}
		return InProcessClasspath{Java: java, MainClass: main, Classpath: cp}, nil
	case config.StrategyHost:
		if tc.HostCommand == "" {
			return nil, errors.ConfigError("host strategy requires a command").
				WithRemedy("set toolkit.host_command").Build()
		}
		return HostExec{Command: tc.HostCommand, PrefixArgs: tc.HostArgs}, nil
	default:
		return nil, errors.ConfigError("unknown toolkit strategy").
			WithContext("strategy", string(tc.Strategy)).
			WithRemedy("use one of script, classpath, host").Build()
	}
}

// ScriptName is the platform launcher name.
func ScriptName() string {
	if runtime.GOOS == "windows" {
		return "dita.bat"
	}
	return "dita"
}

// FindScript probes <home>/bin and then <home> for the launcher script.
func FindScript(home string) (string, error) {
	name := ScriptName()
	candidates := []string{
		filepath.Join(home, "bin", name),
		filepath.Join(home, name),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", errors.ConfigError("launcher script not found at either location").
		WithContext("bin_path", candidates[0]).
		WithContext("home_path", candidates[1]).
		WithRemedy("point toolkit.home at the toolkit installation directory").Build()
}
