// Package assets embeds the stylesheets, scripts and pictures served under
// /css, /javascript and /pictures.
package assets

import "embed"

//go:embed css javascript pictures
var FS embed.FS
