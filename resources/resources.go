// Package resources embeds the scenes and scripts shipped with autopad.
package resources

import (
	"embed"
)

// Files holds scenes/*.yaml and scripts/*.yaml, the layout the scene and
// script loaders read.
//
//go:embed scenes/*.yaml scripts/*.yaml
var Files embed.FS
