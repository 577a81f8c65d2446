package chat

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxMessageBytes is the maximum encoded size of a message payload.
	MaxMessageBytes = 4096
	// MaxMessageChars is the maximum character count of the content.
	MaxMessageChars = 2000
)

// ValidateMessage checks that message content meets the relay requirements.
// Invalid content is rejected at the gateway before reaching the session
// registry.
func ValidateMessage(content string) error {
	if len(content) == 0 {
		return fmt.Errorf("message content is empty")
	}
	if len(content) > MaxMessageBytes {
		return fmt.Errorf("message exceeds %d byte limit", MaxMessageBytes)
	}
	if utf8.RuneCountInString(content) > MaxMessageChars {
		return fmt.Errorf("message exceeds %d character limit", MaxMessageChars)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	return nil
}
