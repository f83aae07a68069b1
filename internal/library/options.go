package library

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures listing and watching.
type Options struct {
	// Extensions lists the file extensions (lowercase, with dot) that count as audio.
	Extensions []string
	// IgnorePatterns are matched against base names with filepath.Match.
	IgnorePatterns []string
	// SettleDelay is how long the directory must be quiet before a change is reported.
	SettleDelay  time.Duration
	IgnoreHidden bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.Extensions == nil {
		o.Extensions = []string{".mp3", ".wav", ".m4a", ".m4b"}
	}

	// nil means defaults; an explicit empty slice keeps the caller's IgnoreHidden choice.
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.part",
			"Thumbs.db",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore reports whether path, relative to the library root, is skipped.
func (o *Options) shouldIgnore(rel string) bool {
	if o.IgnoreHidden {
		for part := range strings.SplitSeq(filepath.ToSlash(filepath.Clean(rel)), "/") {
			if strings.HasPrefix(part, ".") && part != "." && part != ".." {
				return true
			}
		}
	}

	base := filepath.Base(rel)
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

func (o *Options) isAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range o.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
