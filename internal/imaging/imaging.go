// Package imaging decodes submitted images and identifies their encoded
// format from the leading byte signature.
package imaging

import (
	"encoding/base64"
	"strings"

	"medidor/internal/core"
)

// DecodeBase64 decodes a base64 payload, accepting both the bare form and a
// data:URI. When a data:URI carries a MIME prefix it is returned as a hint;
// the sniffed signature is still authoritative.
func DecodeBase64(s string) (data []byte, mimeHint string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				mimeHint = meta[:semi]
			} else {
				mimeHint = meta
			}
			s = s[idx+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, mimeHint, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return b, mimeHint, nil
}

// SniffMime identifies the image format from its magic bytes. Only the
// formats the recognizer accepts are reported; anything else is
// core.ErrUnsupportedFormat.
func SniffMime(b []byte) (string, error) {
	switch {
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8:
		return "image/jpeg", nil
	case len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A:
		return "image/png", nil
	case len(b) >= 12 &&
		b[0] == 'R' && b[1] == 'I' && b[2] == 'F' && b[3] == 'F' &&
		b[8] == 'W' && b[9] == 'E' && b[10] == 'B' && b[11] == 'P':
		return "image/webp", nil
	default:
		return "", core.ErrUnsupportedFormat
	}
}
