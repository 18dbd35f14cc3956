package toolkit

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
)

// InvocationSpec describes one toolkit run. Treat it as immutable once built; use the
// With methods to derive variants.
type InvocationSpec struct {
	ToolHome   string
	Strategy   Strategy
	Inputs     []string
	OutputDir  string
	TempDir    string
	Transtype  string
	FilterFile string
	Properties map[string]string

	// Subcommand and Positional are used by non-transform invocations such as install.
	Subcommand string
	Positional []string
	// TrailingFlags are appended after every other argument in the given order.
	TrailingFlags []string

	// Timeout bounds the run; zero means no deadline beyond the caller's context.
	Timeout time.Duration
}

// InstallSpec returns an invocation that installs plugin into the toolkit.
// The toolkit only accepts --force after the plugin argument.
func InstallSpec(home string, strategy Strategy, plugin string) InvocationSpec {
	return InvocationSpec{
		ToolHome:      home,
		Strategy:      strategy,
		Subcommand:    "install",
		Positional:    []string{plugin},
		TrailingFlags: []string{"--force"},
	}
}

// WithTranstype returns a copy of s for another transtype writing below its own
// output and temp sub-directories.
func (s InvocationSpec) WithTranstype(transtype string) InvocationSpec {
	c := s.clone()
	c.Transtype = transtype
	if s.OutputDir != "" {
		c.OutputDir = filepath.Join(s.OutputDir, transtype)
	}
	if s.TempDir != "" {
		c.TempDir = filepath.Join(s.TempDir, transtype)
	}
	return c
}

func (s InvocationSpec) clone() InvocationSpec {
	c := s
	c.Inputs = append([]string(nil), s.Inputs...)
	c.Positional = append([]string(nil), s.Positional...)
	c.TrailingFlags = append([]string(nil), s.TrailingFlags...)
	if s.Properties != nil {
		c.Properties = make(map[string]string, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

// IsTransform reports whether the spec runs a transformation rather than a subcommand.
func (s InvocationSpec) IsTransform() bool { return s.Subcommand == "" }

// Args returns the toolkit argument vector, one element per value:
//
//	[<subcommand>] [<positional>...] [<flag> <value>]* [-D<name>=<value>]* [<trailing>]*
//
// Properties are sorted by name so the vector is deterministic.
func (s InvocationSpec) Args() []string {
	var args []string
	if s.Subcommand != "" {
		args = append(args, s.Subcommand)
	}
	args = append(args, s.Positional...)
	for _, in := range s.Inputs {
		args = append(args, "--input", in)
	}
	if s.Transtype != "" {
		args = append(args, "--format", s.Transtype)
	}
	if s.OutputDir != "" {
		args = append(args, "--output", s.OutputDir)
	}
	if s.TempDir != "" {
		args = append(args, "--temp", s.TempDir)
	}
	if s.FilterFile != "" {
		args = append(args, "--filter", s.FilterFile)
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+s.Properties[k])
	}
	return append(args, s.TrailingFlags...)
}

// Validate checks the paths the run depends on. Output and temp directories are not
// required to exist.
func (s InvocationSpec) Validate() error {
	if s.Strategy == nil {
		return errors.ConfigError("no execution strategy selected").Build()
	}
	if err := requireReadable(s.ToolHome, true, "toolkit home"); err != nil {
		return err
	}
	if !s.IsTransform() {
		return nil
	}
	if len(s.Inputs) == 0 {
		return errors.ConfigError("no input documents given").
			WithRemedy("set transform.inputs or pass --input").Build()
	}
	if strings.TrimSpace(s.Transtype) == "" {
		return errors.ConfigError("no transtype given").
			WithRemedy("set transform.transtypes or pass --format").Build()
	}
	for _, in := range s.Inputs {
		if err := requireReadable(in, false, "input document"); err != nil {
			return err
		}
	}
	if s.FilterFile != "" {
		if err := requireReadable(s.FilterFile, false, "filter file"); err != nil {
			return err
		}
	}
	for k := range s.Properties {
		if k == "" || strings.ContainsAny(k, "= \t") {
			return errors.ConfigError("invalid property name").WithContext("property", k).Build()
		}
	}
	return nil
}

func requireReadable(path string, wantDir bool, what string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, what+" not found").
			WithContext("path", path).
			WithRemedy("check the path in the configuration").Build()
	}
	if fi.IsDir() != wantDir {
		kind := "a file"
		if wantDir {
			kind = "a directory"
		}
		return errors.ConfigError(what+" must be "+kind).WithContext("path", path).Build()
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, what+" not readable").
			WithContext("path", path).Build()
	}
	return f.Close()
}

// absolutize makes every path in s absolute since the process runs in the toolkit home.
func (s InvocationSpec) absolutize() (InvocationSpec, error) {
	c := s.clone()
	var err error
	abs := func(p *string) {
		if err != nil || *p == "" {
			return
		}
		*p, err = filepath.Abs(*p)
	}
	abs(&c.ToolHome)
	abs(&c.OutputDir)
	abs(&c.TempDir)
	abs(&c.FilterFile)
	for i := range c.Inputs {
		abs(&c.Inputs[i])
	}
	if err != nil {
		return s, errors.WrapError(err, errors.CategoryConfig, "cannot resolve path").Build()
	}
	return c, nil
}
