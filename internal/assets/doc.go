// Package assets implements the css, images and javascript tasks.
//
// CSS and JavaScript go through esbuild: the stylesheet is transformed and
// minified for the supported browsers, the two scripts are bundled by build
// contexts that are created on first use and reused by later rebuilds.
package assets
