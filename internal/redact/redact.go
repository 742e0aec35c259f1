package redact

import "regexp"

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for credential material that can leak
// into error messages: platform tokens, auth headers, and request parameters
// echoed back by a failing API call.
var secretPatterns = []*regexp.Regexp{
	// GitLab personal/project access tokens
	regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`),
	// Phabricator Conduit API tokens
	regexp.MustCompile(`(?:api|cli)-[a-z0-9]{28}`),
	// Token-bearing query or form parameters (api.token=..., private_token=...)
	regexp.MustCompile(`(?i)(api\.token|private[_-]?token|access[_-]?token)=[^&\s"']+`),
	// Authorization headers
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)PRIVATE-TOKEN:\s*\S+`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(string) string {
			return placeholder
		})
	}
	return result
}
