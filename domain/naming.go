package domain

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// RawArtifactName maps a remote object name to the raw artifact holding its
// tabular content. Raw artifacts are always CSV with a lower-case extension;
// a non-CSV extension is kept in the name so a.csv and a.json do not collide.
// Distinct objects can map to the same name (a/b.csv and a__b.csv).
func RawArtifactName(object string) string {
	name := strings.ReplaceAll(strings.Trim(object, "/"), "/", "__")
	if hasExt(name, ExtCSV) {
		name = name[:len(name)-len(ExtCSV)]
	}
	return PrefixRaw + name + ExtCSV
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(path.Ext(name), ext)
}

// BaseName strips the stage prefix and the .csv / .json extension.
func BaseName(artifact string) string {
	for _, p := range []string{PrefixRaw, PrefixCleaned, PrefixSummary} {
		if strings.HasPrefix(artifact, p) {
			artifact = strings.TrimPrefix(artifact, p)
			break
		}
	}
	for _, ext := range []string{ExtCSV, ExtJSON} {
		if hasExt(artifact, ext) {
			return artifact[:len(artifact)-len(ext)]
		}
	}
	return artifact
}

func CleanedArtifactName(artifact string) string {
	return PrefixCleaned + BaseName(artifact) + ExtCSV
}

func SummaryArtifactName(artifact string) string {
	return PrefixSummary + BaseName(artifact) + ExtJSON
}

func IsRawArtifact(name string) bool {
	return strings.HasPrefix(name, PrefixRaw) && hasExt(name, ExtCSV)
}

func IsCleanedArtifact(name string) bool {
	return strings.HasPrefix(name, PrefixCleaned) && hasExt(name, ExtCSV)
}

// ReservedColumnName reports whether a source column name clashes with the
// columns the clean stage adds.
func ReservedColumnName(name string) bool {
	return name == ColCompleteness || strings.HasSuffix(name, OutlierSuffix)
}

// ValidateArtifactName rejects names that would escape the artifact directory.
func ValidateArtifactName(name string) error {
	if name == "" || name == "." || name == ".." {
		return errors.Newf("invalid artifact name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.Newf("invalid artifact name %q: path separators are not allowed", name)
	}
	return nil
}
