// Package artifact names and persists exported build files.
package artifact

import (
	"net/url"
	"path"
	"strings"

	"easlog/src/provider"
)

// compoundSuffixes are archive extensions kept whole.
var compoundSuffixes = []string{"tar.gz", "tar.bz2", "tar.xz", "tar.zst"}

// Prefix returns "<appVersion>-<appBuildVersion>_<buildProfile>".
func Prefix(r *provider.BuildRecord) string {
	return r.AppVersion + "-" + r.AppBuildVersion + "_" + r.BuildProfile
}

// LogsFilename returns the aggregated log document's filename.
func LogsFilename(r *provider.BuildRecord) string {
	return SafeName("logs_" + r.PlatformLower() + "_" + Prefix(r) + ".log")
}

// NativeLogFilename returns the Xcode build log's filename.
func NativeLogFilename(r *provider.BuildRecord) string {
	return SafeName("logs_xcode_" + Prefix(r) + ".log")
}

// ArchiveFilename returns the application archive's filename, keeping the
// extension of the archive URL.
func ArchiveFilename(r *provider.BuildRecord) string {
	name := r.Slug + "_" + Prefix(r)
	if ext := Extension(r.ArchiveURL); ext != "" {
		name += "." + ext
	}
	return SafeName(name)
}

// Extension returns the text after the last dot of the URL's final path
// segment, or a compound suffix such as "tar.gz". It is empty when the
// segment has no dot.
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}

	lower := strings.ToLower(base)
	for _, suffix := range compoundSuffixes {
		if strings.HasSuffix(lower, "."+suffix) {
			return base[len(base)-len(suffix):]
		}
	}

	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}

// SafeName reduces name to a single path element.
func SafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
