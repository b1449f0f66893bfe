// internal/app/system/blobstore/blobstore.go
//
// Package blobstore names the objects work-order images are stored under.
// The objects themselves live in a waffle storage.Store.
package blobstore

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const maxNameLen = 80

// OrderImageKey builds workorders/YYYY/MM/<uuid8>-<name> for an upload
// received at t, where name is filename reduced to safe characters.
func OrderImageKey(t time.Time, filename string) string {
	t = t.UTC()
	return fmt.Sprintf("workorders/%04d/%02d/%s-%s",
		t.Year(), int(t.Month()), uuid.NewString()[:8], SanitizeName(filename))
}

// SanitizeName lowercases name and keeps only letters, digits, '.', '-'
// and '_'. Runs of anything else become a single '-'. An empty result is
// replaced with "file".
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-.")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}
