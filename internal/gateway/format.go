package gateway

import (
	"regexp"
	"strings"
)

// apologyFallback is shown when a chat turn produced nothing displayable.
const apologyFallback = "I apologize, but I couldn't generate a proper response. Please try again."

// paperLinkRe matches the <<link<<{code}<<{title}>>{code}>>link>> pattern the
// discuss persona is instructed to emit for paper references.
var paperLinkRe = regexp.MustCompile(`<<link<<(\d+)<<(.+?)>>(\d+)>>link>>`)

// formatResponse rewrites paper-link markers into anchor tags pointing at the
// paper detail route. Plain text passes through untouched.
func formatResponse(text string) string {
	return paperLinkRe.ReplaceAllString(
		text,
		`<a href="/paper/$1" class="text-blue-600 hover:underline" target="_blank">$2</a>`,
	)
}

// displayable returns text, or the apology fallback when it is blank.
func displayable(text string) string {
	if strings.TrimSpace(text) == "" {
		return apologyFallback
	}
	return text
}
