package issue

import (
	"bytes"
	"encoding/json"

	"github.com/vitorwdson/hercules/internal/fault"
)

// documentBody validates an opaque rich-text document. The core never
// interprets its contents; it only refuses empty or malformed JSON.
func documentBody(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fault.Invalid("a message body is required")
	}
	if !json.Valid(trimmed) {
		return nil, fault.Invalid("the message body could not be parsed")
	}
	return trimmed, nil
}
