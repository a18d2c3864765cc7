// Package backoffice provides the embedded static assets served under /static/.
package backoffice

import "embed"

//go:embed static
var StaticFS embed.FS
