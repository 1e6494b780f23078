package extractor

import "regexp"

// secretKeyPattern flags assignment keys whose name alone implies a secret,
// regardless of the value shape. Grounded on the teacher's
// internal/pipeline/envscan.go secretKeyPattern/secretValuePattern pair,
// generalized from "env bindings with URL values" into "any assignment line".
var secretKeyPattern = regexp.MustCompile(
	`(?i)(secret|password|passwd|token|api_key|apikey|private_key|` +
		`credential|auth_token|access_key|client_secret|signing_key|` +
		`encryption_key|ssh_key|deploy_key|service_account|bearer|jwt_secret)`)

// secretValuePattern flags values that look like a credential material,
// independent of the key name.
var secretValuePattern = regexp.MustCompile(
	`(-----BEGIN [A-Z ]*PRIVATE KEY-----|AKIA[0-9A-Z]{16}|sk-[a-zA-Z0-9]{20,}|` +
		`ghp_[a-zA-Z0-9]{36}|glpat-[a-zA-Z0-9\-]{20,}|xox[bps]-[a-zA-Z0-9\-]+)`)

// assignmentLine matches KEY=VALUE / KEY: VALUE / KEY = "VALUE" style lines
// across config-ish syntaxes (shell, env, yaml, toml, properties, json field).
var assignmentLine = regexp.MustCompile(`(?m)^([ \t]*)([\w.\-]+)([ \t]*[:=][ \t]*)("?)([^\r\n"]*)("?)[ \t]*$`)

const redactedPlaceholder = "***REDACTED***"

// Redact scans content line by line and masks the value half of any
// assignment whose key or value shape implies a secret. Non-assignment
// lines (arbitrary source code, prose, JSON arrays) pass through untouched;
// this is a best-effort filter, not a guarantee of leak-free output.
func Redact(content string) string {
	return assignmentLine.ReplaceAllStringFunc(content, func(line string) string {
		m := assignmentLine.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		indent, key, sep, q1, value, q2 := m[1], m[2], m[3], m[4], m[5], m[6]
		if value == "" {
			return line
		}
		if secretKeyPattern.MatchString(key) || secretValuePattern.MatchString(value) {
			return indent + key + sep + q1 + redactedPlaceholder + q2
		}
		return line
	})
}
