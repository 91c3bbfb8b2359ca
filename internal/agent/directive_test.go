package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSearchResponse(t *testing.T) {
	t.Run("search requested", func(t *testing.T) {
		reply := "```json\n" +
			`[{"role": "keyword", "output": "machine learning"},
			  {"role": "options", "output": "", "search": true, "add_paper": false}]` +
			"\n```"

		d := DecodeSearchResponse(reply)
		assert.True(t, d.ShouldSearch)
		assert.Equal(t, "machine learning", d.Keyword)
		assert.Empty(t, d.PaperCodes)
	})

	t.Run("keyword without options stays inert", func(t *testing.T) {
		d := DecodeSearchResponse(`[{"role": "keyword", "output": "deep learning"}]`)
		assert.False(t, d.ShouldSearch)
		assert.Equal(t, "deep learning", d.Keyword)
	})

	t.Run("paper codes attached", func(t *testing.T) {
		reply := "Here is my decision:\n```json" + `
		[
			{"role": "keyword", "output": ""},
			{"role": "add_paper", "output": ["12345", "67890"]},
			{"role": "options", "output": "", "search": false, "add_paper": true}
		]` + "```"

		d := DecodeSearchResponse(reply)
		assert.False(t, d.ShouldSearch)
		assert.Equal(t, []string{"12345", "67890"}, d.PaperCodes)
	})

	t.Run("add_paper false ignores code list", func(t *testing.T) {
		reply := `[
			{"role": "add_paper", "output": ["12345"]},
			{"role": "options", "output": "", "search": false, "add_paper": false}
		]`

		d := DecodeSearchResponse(reply)
		assert.Empty(t, d.PaperCodes)
	})

	t.Run("first match wins for duplicate roles", func(t *testing.T) {
		reply := `[
			{"role": "keyword", "output": "first"},
			{"role": "keyword", "output": "second"},
			{"role": "options", "search": true},
			{"role": "options", "search": false}
		]`

		d := DecodeSearchResponse(reply)
		assert.Equal(t, "first", d.Keyword)
		assert.True(t, d.ShouldSearch)
	})

	t.Run("garbage degrades to zero directive", func(t *testing.T) {
		for _, in := range []string{"", "not json at all", "{broken", "```json\n{{{\n```", "[1, 2, 3"} {
			d := DecodeSearchResponse(in)
			assert.False(t, d.ShouldSearch, "input: %q", in)
			assert.Empty(t, d.Keyword, "input: %q", in)
			assert.Nil(t, d.PaperCodes, "input: %q", in)
		}
	})
}

func TestDecodeDiscussResponse(t *testing.T) {
	t.Run("two channel array", func(t *testing.T) {
		reply := "```json\n" + `[
			{"role": "user", "output": "Sure, let me look into that."},
			{"role": "system", "output": "[{\"role\": \"user\", \"input\": \"find papers\"}]"}
		]` + "\n```"

		d := DecodeDiscussResponse(reply)
		require.Empty(t, d.ParseErr)
		assert.Equal(t, "Sure, let me look into that.", d.UserOutput)
		assert.Contains(t, d.SystemOutput, "find papers")
	})

	t.Run("single bare object", func(t *testing.T) {
		d := DecodeDiscussResponse(`{"role": "user", "output": "Just an answer."}`)
		require.Empty(t, d.ParseErr)
		assert.Equal(t, "Just an answer.", d.UserOutput)
		assert.Empty(t, d.SystemOutput)
	})

	t.Run("trailing commas repaired", func(t *testing.T) {
		reply := "```json\n" + `[
			{"role": "user", "output": "Fixed.",},
		]` + "\n```"

		d := DecodeDiscussResponse(reply)
		require.Empty(t, d.ParseErr)
		assert.Equal(t, "Fixed.", d.UserOutput)
	})

	t.Run("plain prose passes through", func(t *testing.T) {
		d := DecodeDiscussResponse("  The model is allowed to just talk.\n")
		assert.Empty(t, d.ParseErr)
		assert.Equal(t, "The model is allowed to just talk.", d.UserOutput)
	})

	t.Run("unrepairable JSON keeps raw text and records error", func(t *testing.T) {
		in := "```json\n{\"role\": oops}\n```"
		d := DecodeDiscussResponse(in)
		assert.NotEmpty(t, d.ParseErr)
		assert.Contains(t, d.UserOutput, "oops")
	})

	t.Run("first match wins for duplicate channels", func(t *testing.T) {
		d := DecodeDiscussResponse(`[
			{"role": "user", "output": "first"},
			{"role": "user", "output": "second"}
		]`)
		assert.Equal(t, "first", d.UserOutput)
	})

	t.Run("empty input yields empty directive", func(t *testing.T) {
		d := DecodeDiscussResponse("")
		assert.Empty(t, d.UserOutput)
		assert.Empty(t, d.ParseErr)
	})
}
