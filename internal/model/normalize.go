package model

import (
	"encoding/json"
	"strings"
)

// NormalizeSkills converts the platform's loose JSONB skills column into a
// clean token list. The column historically holds either plain strings
// (`["Excel", "Zendesk"]`) or objects (`[{"name": "Excel"}]`), sometimes
// mixed; entries that are neither are skipped. Tokens are lowercased,
// trimmed and deduplicated, keeping first-seen order.
func NormalizeSkills(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			s = obj.Name
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeSkillList applies the same lowercase/trim/dedupe rules to a list
// that already arrived as strings.
func NormalizeSkillList(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeEnum lowercases a nullable enum column (work arrangement, shift,
// employment status). nil and blank both normalize to "", meaning
// unspecified.
func NormalizeEnum(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// NormalizeText trims a nullable free-text column (city, title), keeping the
// original casing for display.
func NormalizeText(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
