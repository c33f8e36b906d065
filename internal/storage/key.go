package storage

import (
	"strings"

	"github.com/google/uuid"
)

// BuildKey builds an object key of the form
// {namespace}/{sessionID}/{name_or_anon}_{task}_{uniqueSuffix}.{ext}.
// The participant name is lowercased and reduced to [a-z0-9-]; an empty or
// fully stripped name falls back to "anon".
func BuildKey(namespace, sessionID, name, task, ext string) string {
	slug := nameSlug(name)
	if slug == "" {
		slug = "anon"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.TrimRight(namespace, "/") + "/" + sessionID + "/" + slug + "_" + task + "_" + suffix + "." + strings.TrimPrefix(ext, ".")
}

func nameSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
