package models

import (
	"path"
	"strings"
)

// Stem returns the base name of p without the .md extension.
func Stem(p string) string {
	return strings.TrimSuffix(path.Base(p), ".md")
}

// Filename returns the base name of p.
func Filename(p string) string {
	return path.Base(p)
}
