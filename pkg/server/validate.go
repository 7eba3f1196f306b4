package server

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
)

// prefixPattern is the restricted character set for user-supplied prefixes
var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// requireString validates a required non-empty field
func requireString(w http.ResponseWriter, field, value string) bool {
	if value == "" {
		writeClientError(w, field, field+" is required")
		return false
	}
	return true
}

// requireAbsPath validates a required, absolute, resolvable path
func requireAbsPath(w http.ResponseWriter, field, value string) bool {
	if !requireString(w, field, value) {
		return false
	}
	if !filepath.IsAbs(value) {
		writeClientError(w, field, field+" must be an absolute path")
		return false
	}
	return true
}

// requireDir additionally validates that the path is an existing directory
func requireDir(w http.ResponseWriter, field, value string) bool {
	if !requireAbsPath(w, field, value) {
		return false
	}
	info, err := os.Stat(value)
	if err != nil || !info.IsDir() {
		writeClientError(w, field, field+" must name an existing directory")
		return false
	}
	return true
}

// requireFile validates that the path is an existing file
func requireFile(w http.ResponseWriter, field, value string) bool {
	if !requireAbsPath(w, field, value) {
		return false
	}
	info, err := os.Stat(value)
	if err != nil || info.IsDir() {
		writeClientError(w, field, field+" must name an existing file")
		return false
	}
	return true
}

// requirePrefix validates the restricted prefix character set
func requirePrefix(w http.ResponseWriter, field, value string) bool {
	if !requireString(w, field, value) {
		return false
	}
	if !prefixPattern.MatchString(value) {
		writeClientError(w, field, field+" may only contain letters, digits, '_' and '-'")
		return false
	}
	return true
}
