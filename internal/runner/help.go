package runner

import (
	"fmt"
	"sort"
)

func (r *Runner) printGeneralHelp() {
	r.printf("%s\n", r.style.Header(fmt.Sprintf("What's up, this is kaban %s, your favorite command line task manager,", r.root.Version())))
	r.printf("%s\n\n", r.style.Header("reporting for duty. Use the following commands to handle your tasks and todos:"))

	names := r.root.Commands()
	sort.Strings(names)
	for _, name := range names {
		spec, ok := commandTable[name]
		if !ok {
			continue
		}
		r.printf("  %s %s\n", r.style.Success(fmt.Sprintf("%-9s", name)), r.style.Muted(spec.usage.summary))
	}
	r.printf("\n%s\n", r.style.Muted("Run `kaban help COMMAND` for details on one command."))
}

func (r *Runner) printUsageForCommand(command string) {
	command = normalizeCommand(command)
	spec, ok := commandTable[command]
	if !ok {
		r.printf("%s kaban %s\n", r.style.SubHeader("Usage:"), command)
		return
	}
	r.printCommandHelp(command, spec.usage)
}

func (r *Runner) printCommandHelp(command string, spec commandUsageSpec) {
	r.printf("\n%s\n", r.style.Header("Command Help: kaban "+command))
	r.printf("%s\n\n", r.style.Muted(spec.summary))
	r.printf("%s %s\n", r.style.SubHeader("Usage:"), r.style.Success(spec.usage))
	if len(spec.options) > 0 {
		r.printf("\n%s\n", r.style.SubHeader("Options"))
		for _, option := range spec.options {
			r.printf("  %s\n", r.style.Muted(option))
		}
	}
	if len(spec.examples) > 0 {
		r.printf("\n%s\n", r.style.SubHeader("Examples"))
		for _, example := range spec.examples {
			r.printf("  %s\n", r.style.Success(example))
		}
	}
	r.printf("\n%s\n", r.style.Muted("Global options: --config PATH, --local, --quiet, --color/--no-color"))
}
