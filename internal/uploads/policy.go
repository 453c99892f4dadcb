package uploads

import "strings"

// DefaultMaxBytes is the size cap used when none is configured.
const DefaultMaxBytes int64 = 5 << 20

// DefaultAllowedMIME is the allow-list used when none is configured.
var DefaultAllowedMIME = []string{"image/*", "text/plain", "application/pdf"}

// MIMERule is one allow-list entry: an exact type, or a "type/*" wildcard.
type MIMERule struct {
	value    string
	wildcard bool
}

func (r MIMERule) String() string {
	if r.wildcard {
		return r.value + "*"
	}
	return r.value
}

func (r MIMERule) matches(mime string) bool {
	if r.wildcard {
		return strings.HasPrefix(mime, r.value)
	}
	return mime == r.value
}

// ParseMIMERules parses allow-list entries. Blank entries are skipped and an
// empty result falls back to DefaultAllowedMIME.
func ParseMIMERules(rules []string) []MIMERule {
	out := make([]MIMERule, 0, len(rules))
	for _, raw := range rules {
		rule := strings.ToLower(strings.TrimSpace(raw))
		if rule == "" {
			continue
		}
		if strings.HasSuffix(rule, "/*") {
			out = append(out, MIMERule{value: rule[:strings.Index(rule, "/")+1], wildcard: true})
			continue
		}
		out = append(out, MIMERule{value: rule})
	}
	if len(out) == 0 {
		return ParseMIMERules(DefaultAllowedMIME)
	}
	return out
}

// Policy is the process-wide size and type policy. It is immutable once
// built and safe to share between concurrent uploads.
type Policy struct {
	maxBytes int64
	rules    []MIMERule
}

// NewPolicy builds a policy. A non-positive maxBytes selects DefaultMaxBytes.
func NewPolicy(maxBytes int64, allowed []string) Policy {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Policy{maxBytes: maxBytes, rules: ParseMIMERules(allowed)}
}

// MaxBytes is the largest accepted file size.
func (p Policy) MaxBytes() int64 {
	if p.maxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.maxBytes
}

// Rules returns a copy of the allow-list.
func (p Policy) Rules() []MIMERule {
	return append([]MIMERule(nil), p.rules...)
}

// Allows reports whether mime matches any rule. An empty type never matches.
func (p Policy) Allows(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return false
	}
	for _, r := range p.rules {
		if r.matches(mime) {
			return true
		}
	}
	return false
}
