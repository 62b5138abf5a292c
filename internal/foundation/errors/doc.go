// Package errors provides the classified error primitives used across sitebuilder.
//
// Every failure that crosses a task boundary is a ClassifiedError: it carries a
// category (frontmatter, render, template, bundle, lint, ...), a severity and a
// small context map (file name, task name, template name). The CLI and HTTP
// adapters turn those classifications into exit codes and status codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryTemplate, "render page template").
//		WithFile("demos/grids.html").
//		WithContext("template", "demo.html").
//		Build()
package errors
