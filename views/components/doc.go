// Package components holds the page fragments HTMX swaps in. The markup lives
// in the .templ files; the _templ.go files are generated from them.
package components

//go:generate templ generate -path ..
