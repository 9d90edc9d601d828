// Package appfs embeds static app files into the binary.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
