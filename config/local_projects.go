package config

import (
	"encoding/json"
	"maps"
	"strings"

	"go.uber.org/zap"

	"githubtray/logger"
)

// LocalProjects maps "owner/repo" to a folder on disk. Repositories with an
// entry are the monitored ones.
type LocalProjects map[string]string

// ParseLocalProjects decodes the JSON object form. Malformed input yields an
// empty mapping.
func ParseLocalProjects(raw string) LocalProjects {
	lp := LocalProjects{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return lp
	}
	if err := json.Unmarshal([]byte(raw), &lp); err != nil {
		logger.Warn("Ignoring malformed local projects mapping", zap.Error(err))
		return LocalProjects{}
	}
	for k, v := range lp {
		if strings.TrimSpace(v) == "" {
			delete(lp, k)
		}
	}
	return lp
}

// Encode returns the JSON object form.
func (lp LocalProjects) Encode() string {
	if lp == nil {
		return "{}"
	}
	data, err := json.Marshal(map[string]string(lp))
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Path returns the folder mapped to fullName.
func (lp LocalProjects) Path(fullName string) (string, bool) {
	p, ok := lp[fullName]
	return p, ok && p != ""
}

// Clone returns an independent copy.
func (lp LocalProjects) Clone() LocalProjects {
	out := make(LocalProjects, len(lp))
	maps.Copy(out, lp)
	return out
}

// Equal reports whether both mappings hold the same entries.
func (lp LocalProjects) Equal(other LocalProjects) bool {
	return maps.Equal(lp, other)
}
