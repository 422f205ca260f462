package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/fileguard/internal/domain/analysis"
)

// GetSystemPrompt returns the fixed classification instruction sent with every file.
func GetSystemPrompt() string {
	levels := make([]string, 0, len(analysis.VerdictLevels))
	for _, l := range analysis.VerdictLevels {
		levels = append(levels, fmt.Sprintf("%q", string(l)))
	}

	return fmt.Sprintf(`You are a cybersecurity expert. Analyze the input file data for security threats.
Check for:
1. Mismatched magic bytes (headers vs extension).
2. Obfuscated code in scripts (eval, base64 decoding).
3. Dangerous shell commands.
Return JSON: { "threatLevel": %s, "score": 0-100, "summary": "string" }`, strings.Join(levels, "|"))
}

// GetFilePreamble describes an attachment for providers that only accept text parts.
func GetFilePreamble(mediaType string, size int) string {
	return fmt.Sprintf("File media type: %s\nFile size: %d bytes\nFile content (base64):", mediaType, size)
}
