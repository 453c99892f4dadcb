package uploads

import "strings"

const (
	MetaUploadedBy   = "uploaded-by"
	MetaOriginalName = "original-name"

	defaultClientHint = "unknown"
	maxClientHintLen  = 64
	maxOriginalLen    = 128
)

// Metadata builds the object metadata stored with an upload. Values are
// limited to printable ASCII so they are valid object store header values.
func Metadata(clientHint, originalName string) map[string]string {
	hint := headerValue(clientHint, maxClientHintLen)
	if hint == "" {
		hint = defaultClientHint
	}
	meta := map[string]string{MetaUploadedBy: hint}
	if name := headerValue(originalName, maxOriginalLen); name != "" {
		meta[MetaOriginalName] = name
	}
	return meta
}

func headerValue(s string, limit int) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			continue
		}
		if b.Len() == limit {
			break
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
