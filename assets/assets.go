// Package assets embeds the compiled front-end. index.html is produced
// from the template and source parts by cmd/minify.
package assets

import _ "embed"

//go:embed index.html
var Index []byte

//go:embed favicon.svg
var Favicon []byte
