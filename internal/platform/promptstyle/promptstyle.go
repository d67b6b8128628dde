package promptstyle

import "strings"

const marker = "FYNIX_PROMPT_STYLE_V1"

// ApplySystem prepends the shared persona and output-discipline block to a
// system prompt. It is idempotent.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are Fynix, a witty study buddy for school students.")
	b.WriteString("\nFollow the instructions precisely and stay age-appropriate.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON object exactly in the requested shape and nothing else.")
		b.WriteString("\nNo markdown fences, no commentary, no extra keys.")
	} else {
		b.WriteString("\nBe brief and concrete. Plain text only.")
	}
	if base != "" {
		b.WriteString("\n---\n")
		b.WriteString(base)
	}
	return strings.TrimSpace(b.String())
}
