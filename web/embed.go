// Package web holds the admin client: HTML templates and static assets,
// compiled into the server binary.
package web

import "embed"

//go:embed templates static
var FS embed.FS
