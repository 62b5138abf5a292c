package assets

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// FormatMessages renders esbuild diagnostics as plain text.
func FormatMessages(msgs []api.Message, kind api.MessageKind) string {
	lines := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind:          kind,
		TerminalWidth: 100,
	})
	return strings.TrimSpace(strings.Join(lines, ""))
}

type diagnostics string

func (d diagnostics) Error() string { return string(d) }

func bundleError(message, entry string, msgs []api.Message) error {
	return errors.BundleError(message).
		WithFile(entry).
		WithCause(diagnostics(FormatMessages(msgs, api.ErrorMessage))).
		Build()
}

func logWarnings(ctx context.Context, msgs []api.Message) {
	if len(msgs) == 0 {
		return
	}
	logfields.FromContext(ctx).Warn("Bundler warnings",
		logfields.Count(len(msgs)),
		logfields.Error(diagnostics(FormatMessages(msgs, api.WarningMessage))))
}
