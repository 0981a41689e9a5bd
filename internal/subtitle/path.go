package subtitle

import (
	"path/filepath"
	"strings"
)

// OutputPath swaps the media extension of audioPath for .<language>.<ext>,
// or .<ext> when language is empty. Only the final extension changes.
func OutputPath(audioPath, language string, format Format) string {
	base := filepath.Base(audioPath)
	ext := filepath.Ext(base)
	// dotfiles like ".hidden" have no extension
	if ext == base {
		ext = ""
	}
	stem := strings.TrimSuffix(audioPath, ext)

	language = strings.TrimSpace(language)
	if language == "" {
		return stem + "." + format.Extension()
	}
	return stem + "." + language + "." + format.Extension()
}
