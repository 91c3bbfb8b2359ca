package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model output is untrusted free text with JSON mixed in. Both decoders here
// are pure and total: any input, including empty strings, non-JSON, and JSON
// with trailing commas, yields a structurally valid result without panicking.

// SearchDirective is the decoded instruction from a search-agent reply.
// The zero value is the inert "do nothing" turn.
type SearchDirective struct {
	ShouldSearch bool
	Keyword      string
	PaperCodes   []string
}

// DiscussDirective is the decoded two-channel output of a discuss-agent reply.
// ParseErr carries a log-worthy message when JSON repair failed; UserOutput is
// still populated with the raw text in that case.
type DiscussDirective struct {
	UserOutput   string
	SystemOutput string
	ParseErr     string
}

// fencedJSONRe matches a ```json fenced block, capturing its body.
var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// objectRe and arrayRe find a bare brace- or bracket-delimited region when no
// fence is present. Non-greedy, so nested structures beyond one level are not
// the target — the discuss agent emits flat role/output objects.
var (
	objectRe = regexp.MustCompile(`(?s)\{.*?\}`)
	arrayRe  = regexp.MustCompile(`(?s)\[.*?\]`)
)

// trailing-comma repair: the model occasionally emits {"a":1,} or [1,2,].
var (
	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
)

// searchItem is one tagged object in a search-agent response list.
type searchItem struct {
	Role     string          `json:"role"`
	Output   json.RawMessage `json:"output"`
	Search   bool            `json:"search"`
	AddPaper bool            `json:"add_paper"`
}

// DecodeSearchResponse extracts the structured directive from a search-agent
// reply. A ```json fence is preferred; otherwise the whole input is treated as
// JSON. Malformed input degrades to the zero directive, never an error.
// Scanning is order-preserving and first-match-wins per role.
func DecodeSearchResponse(text string) SearchDirective {
	payload := text
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		payload = m[1]
	}

	var items []searchItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return SearchDirective{}
	}

	var d SearchDirective
	keywordSet, optionsSet := false, false
	for _, item := range items {
		switch item.Role {
		case "keyword":
			if !keywordSet {
				var kw string
				if json.Unmarshal(item.Output, &kw) == nil {
					d.Keyword = kw
				}
				keywordSet = true
			}
		case "options":
			if !optionsSet {
				d.ShouldSearch = item.Search
				if item.AddPaper {
					d.PaperCodes = firstCodeList(items)
				}
				optionsSet = true
			}
		}
	}
	return d
}

// firstCodeList returns the first add_paper item's code list.
func firstCodeList(items []searchItem) []string {
	for _, item := range items {
		if item.Role != "add_paper" {
			continue
		}
		var codes []string
		if json.Unmarshal(item.Output, &codes) == nil {
			return codes
		}
		return nil
	}
	return nil
}

// discussItem is one tagged object in a discuss-agent response.
type discussItem struct {
	Role   string `json:"role"`
	Output string `json:"output"`
}

// DecodeDiscussResponse extracts the user-visible and system outputs from a
// discuss-agent reply. Lookup order: ```json fence, bare object, bare array.
// Trailing commas are repaired before parsing. If no JSON-like region exists,
// the trimmed raw text becomes the user output — the model is allowed to just
// talk. A parse failure after repair falls back the same way and records the
// error for logging.
func DecodeDiscussResponse(text string) DiscussDirective {
	region := ""
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		region = strings.TrimSpace(m[1])
	} else if m := objectRe.FindString(text); m != "" {
		region = m
	} else if m := arrayRe.FindString(text); m != "" {
		region = m
	}

	if region == "" {
		return DiscussDirective{UserOutput: strings.TrimSpace(text)}
	}

	region = trailingCommaObjRe.ReplaceAllString(region, "}")
	region = trailingCommaArrRe.ReplaceAllString(region, "]")

	var items []discussItem
	if strings.HasPrefix(region, "[") {
		if err := json.Unmarshal([]byte(region), &items); err != nil {
			return DiscussDirective{
				UserOutput: strings.TrimSpace(text),
				ParseErr:   "JSON decode error: " + err.Error(),
			}
		}
	} else {
		var single discussItem
		if err := json.Unmarshal([]byte(region), &single); err != nil {
			return DiscussDirective{
				UserOutput: strings.TrimSpace(text),
				ParseErr:   "JSON decode error: " + err.Error(),
			}
		}
		items = []discussItem{single}
	}

	var d DiscussDirective
	userSet, systemSet := false, false
	for _, item := range items {
		switch item.Role {
		case "user":
			if !userSet {
				d.UserOutput = item.Output
				userSet = true
			}
		case "system":
			if !systemSet {
				d.SystemOutput = item.Output
				systemSet = true
			}
		}
	}
	return d
}
