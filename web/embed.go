// Package web bundles the HTML templates and static assets into the binary.
package web

import "embed"

// EmbeddedFS holds templates/ and static/.
//
//go:embed templates static
var EmbeddedFS embed.FS
