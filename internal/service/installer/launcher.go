package installer

import (
	"strconv"
	"strings"

	"github.com/yzharold/RCAS/internal/domain/manifest"
)

// renderLauncher produces the POSIX shell script registered for a console
// script. It puts the library directory on PYTHONPATH and calls the entry
// callable, forwarding arguments and the exit status.
// The shell stays the parent of the interpreter so the process keeps the
// alias as its name while the command runs.
func renderLauncher(ep manifest.EntryPoint, name, version, libDir, interpreter string) []byte {
	head, _, _ := strings.Cut(ep.Callable, ".")

	program := "import sys; sys.argv[0] = " + strconv.Quote(ep.Alias) +
		"; from " + ep.Module + " import " + head +
		"; sys.exit(" + ep.Callable + "())"

	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("# " + name + " " + version + " console script generated by rcas-setup. Do not edit.\n")
	b.WriteString("# Entry point: " + ep.String() + "\n")
	b.WriteString("PYTHONPATH=" + shellQuote(libDir) + "\"${PYTHONPATH:+:$PYTHONPATH}\"\n")
	b.WriteString("export PYTHONPATH\n")
	b.WriteString(shellQuote(interpreter) + " -c " + shellQuote(program) + " \"$@\"\n")
	b.WriteString("exit $?\n")

	return []byte(b.String())
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
