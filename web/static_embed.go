// ABOUTME: Embeds the browser page and its CSS/JS assets into the binary.
// ABOUTME: Uses explicit subdirectory globs because //go:embed static/* does not recurse.
package web

import "embed"

//go:embed static/index.html static/css/*.css static/js/*.js
var StaticFS embed.FS
