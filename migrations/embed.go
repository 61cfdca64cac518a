// Package migrations contains the embedded SQL migration set bundled with the
// bootstrap binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
