// Package web embeds the single-page client served at "/".
package web

import (
	"embed"
	"io/fs"

	"github.com/ignite/blast-sender/internal/pkg/logger"
)

//go:embed static
var staticFiles embed.FS

// StaticFS is the embedded static file system with the "static/" prefix stripped.
var StaticFS fs.FS

func init() {
	var err error

	StaticFS, err = fs.Sub(staticFiles, "static")
	if err != nil {
		logger.Error("web: failed to create static FS", "error", err)
		panic(err)
	}
}
