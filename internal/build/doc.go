// Package build wires the site tasks (pages, css, images, javascript, lint,
// clean and their default group) into a task registry. All execution paths
// (one-shot CLI runs, serve, watch rebuilds) route through Service.
package build
