package redact

import (
	"regexp"
	"strings"
)

const mask = "[REDACTED]"

var (
	// Long-term and temporary access key ids.
	accessKeyPattern = regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)
	// key=value style assignments of secret material.
	assignmentPattern = regexp.MustCompile(`(?i)(aws_secret_access_key|aws_session_token|secret_?access_?key|session_?token)(\s*[=:]\s*)("?)[^\s"',]+`)
	jwtPattern        = regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`)
)

// sensitiveKeys are map keys whose values are always masked.
var sensitiveKeys = map[string]struct{}{
	"secretaccesskey":       {},
	"sessiontoken":          {},
	"aws_secret_access_key": {},
	"aws_session_token":     {},
}

type Redactor struct {
	extra []string
}

func New() *Redactor {
	return &Redactor{}
}

// WithValues returns a redactor that also masks the given literal values,
// e.g. the credentials handed to a sandboxed script.
func (r *Redactor) WithValues(values ...string) *Redactor {
	out := &Redactor{}
	if r != nil {
		out.extra = append(out.extra, r.extra...)
	}
	for _, value := range values {
		if len(strings.TrimSpace(value)) >= 8 {
			out.extra = append(out.extra, value)
		}
	}
	return out
}

func (r *Redactor) RedactString(input string) string {
	if r != nil {
		for _, value := range r.extra {
			input = strings.ReplaceAll(input, value, mask)
		}
	}
	input = assignmentPattern.ReplaceAllString(input, "${1}${2}${3}"+mask)
	input = accessKeyPattern.ReplaceAllString(input, mask)
	return jwtPattern.ReplaceAllString(input, mask)
}

func (r *Redactor) RedactMap(input map[string]any) map[string]any {
	output := map[string]any{}
	for k, v := range input {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			if s, isString := v.(string); isString && s == "" {
				output[k] = s
				continue
			}
			output[k] = mask
			continue
		}
		output[k] = r.RedactValue(v)
	}
	return output
}

func (r *Redactor) RedactValue(input any) any {
	switch v := input.(type) {
	case string:
		return r.RedactString(v)
	case map[string]any:
		return r.RedactMap(v)
	case []any:
		redacted := make([]any, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactValue(item))
		}
		return redacted
	case []map[string]any:
		redacted := make([]map[string]any, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactMap(item))
		}
		return redacted
	case []string:
		redacted := make([]string, 0, len(v))
		for _, item := range v {
			redacted = append(redacted, r.RedactString(item))
		}
		return redacted
	case map[string]string:
		redacted := make(map[string]string, len(v))
		for key, item := range v {
			if _, ok := sensitiveKeys[strings.ToLower(key)]; ok && item != "" {
				redacted[key] = mask
				continue
			}
			redacted[key] = r.RedactString(item)
		}
		return redacted
	default:
		return input
	}
}
