// Package pages holds full-page layouts.
package pages
