package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// RunCmd runs the named tasks one after another.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks to run, in order (default: default)"`
	List  bool     `short:"l" help:"List the available tasks and exit"`
}

// Run executes the run command.
func (r *RunCmd) Run(root *CLI) error {
	s, err := root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if r.List {
		for _, name := range s.tasks.Names() {
			_, _ = fmt.Fprintf(os.Stdout, "%-22s %s\n", name, s.tasks.Describe(name))
		}
		return nil
	}

	names := r.Tasks
	if len(names) == 0 {
		names = []string{build.TaskDefault}
	}
	var unknown []string
	for _, name := range names {
		if !s.tasks.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return errors.ValidationError("unknown task").
			WithContext("tasks", strings.Join(unknown, ", ")).
			WithContext("available", strings.Join(s.tasks.Names(), ", ")).
			Build()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, name := range names {
		if err := s.tasks.Run(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
