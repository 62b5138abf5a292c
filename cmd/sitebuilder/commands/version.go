package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// VersionCmd prints build metadata.
type VersionCmd struct{}

// Run executes the version command.
func (v *VersionCmd) Run() error {
	_, err := fmt.Fprintln(os.Stdout, version.String())
	return err
}
