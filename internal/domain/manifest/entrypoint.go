package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// EntryPoint maps a command alias to a callable inside a module.
type EntryPoint struct {
	Group    string `yaml:"group"`
	Alias    string `yaml:"alias"`
	Module   string `yaml:"module"`
	Callable string `yaml:"callable"`
}

var errMalformedEntryPoint = errors.New("malformed entry point")

// ParseEntryPoint parses "alias = module.path:callable".
func ParseEntryPoint(group, spec string) (EntryPoint, error) {
	alias, target, found := strings.Cut(spec, "=")
	if !found {
		return EntryPoint{}, fmt.Errorf("%w: %q: missing '='", errMalformedEntryPoint, spec)
	}

	module, callable, found := strings.Cut(strings.TrimSpace(target), ":")
	if !found {
		return EntryPoint{}, fmt.Errorf("%w: %q: missing ':'", errMalformedEntryPoint, spec)
	}

	ep := EntryPoint{
		Group:    group,
		Alias:    strings.TrimSpace(alias),
		Module:   strings.TrimSpace(module),
		Callable: strings.TrimSpace(callable),
	}

	if ep.Alias == "" || strings.ContainsAny(ep.Alias, " \t/") {
		return EntryPoint{}, fmt.Errorf("%w: %q: bad alias", errMalformedEntryPoint, spec)
	}

	if !validPackageName(ep.Module) {
		return EntryPoint{}, fmt.Errorf("%w: %q: bad module", errMalformedEntryPoint, spec)
	}

	if !validPackageName(ep.Callable) {
		return EntryPoint{}, fmt.Errorf("%w: %q: bad callable", errMalformedEntryPoint, spec)
	}

	return ep, nil
}

// ConsoleScripts returns the parsed console_scripts entry points sorted by alias.
func (m *Manifest) ConsoleScripts() ([]EntryPoint, error) {
	specs := m.EntryPoints[ConsoleScriptsGroup]
	result := make([]EntryPoint, 0, len(specs))

	for _, spec := range specs {
		ep, err := ParseEntryPoint(ConsoleScriptsGroup, spec)
		if err != nil {
			return nil, err
		}

		result = append(result, ep)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Alias < result[j].Alias
	})

	return result, nil
}

// Package returns the package that holds the entry module:
// "RCAS.RCAS" lives in package "RCAS".
func (ep EntryPoint) Package() string {
	idx := strings.LastIndex(ep.Module, ".")
	if idx < 0 {
		return ""
	}

	return ep.Module[:idx]
}

// ModulePath is the slash-separated source file of the entry module.
func (ep EntryPoint) ModulePath() string {
	return PackageDir(ep.Module) + ".py"
}

// String renders the entry point in its declaration form.
func (ep EntryPoint) String() string {
	return ep.Alias + " = " + ep.Module + ":" + ep.Callable
}
