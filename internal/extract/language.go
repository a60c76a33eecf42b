package extract

import "github.com/nextlevelbuilder/waindex/internal/model"

// DetectLanguages reports which scripts appear in s. Mixed text always
// lists "mixed" first, then "hebrew", then "english"; callers and tests
// rely on that ordering. Text with neither script yields ["unknown"].
func DetectLanguages(s string) []string {
	var hasHebrew, hasLatin bool
	for _, r := range s {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hasHebrew = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		}
		if hasHebrew && hasLatin {
			return []string{model.LangMixed, model.LangHebrew, model.LangEnglish}
		}
	}
	if hasHebrew {
		return []string{model.LangHebrew}
	}
	if hasLatin {
		return []string{model.LangEnglish}
	}
	return []string{model.LangUnknown}
}

// containsHebrew reports whether s has at least one Hebrew-block rune.
func containsHebrew(s string) bool {
	for _, r := range s {
		if r >= 0x0590 && r <= 0x05FF {
			return true
		}
	}
	return false
}
