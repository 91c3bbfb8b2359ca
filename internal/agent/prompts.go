package agent

import (
	"fmt"
	"os"
	"path/filepath"
)

// Role identifies which persona a conversational agent runs under.
type Role string

const (
	// RoleDiscuss is the user-facing search-mode agent. It answers in two
	// channels: user-visible text and a system directive for the search agent.
	RoleDiscuss Role = "discuss"

	// RoleSearch is the behind-the-scenes agent that decides whether to hit
	// the repository and which papers to attach.
	RoleSearch Role = "search"

	// RoleGeneral is the single agent of a general-knowledge session.
	RoleGeneral Role = "general"
)

// Default personas used when the prompt file for a role cannot be read.
// Missing prompt resources degrade to these rather than failing the request.
const (
	defaultResearchPersona = "You are a helpful academic research assistant."
	defaultGeneralPersona  = "You are a helpful assistant for general knowledge inquiries."
)

// promptFiles maps each role to its prompt file name under the prompt dir.
var promptFiles = map[Role]string{
	RoleDiscuss: "discuss_client.txt",
	RoleSearch:  "search_client.txt",
	RoleGeneral: "base_information.txt",
}

// PromptLoader resolves the system prompt text for a role.
type PromptLoader interface {
	Load(role Role) (string, error)
}

// DirPromptLoader reads role prompts from text files in a directory.
type DirPromptLoader struct {
	Dir string
}

func (l DirPromptLoader) Load(role Role) (string, error) {
	name, ok := promptFiles[role]
	if !ok {
		return "", fmt.Errorf("unknown agent role %q", role)
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// defaultPersona returns the fallback prompt for a role.
func defaultPersona(role Role) string {
	if role == RoleGeneral {
		return defaultGeneralPersona
	}
	return defaultResearchPersona
}

// StaticPromptLoader serves fixed prompt strings. Used by tests.
type StaticPromptLoader map[Role]string

func (l StaticPromptLoader) Load(role Role) (string, error) {
	p, ok := l[role]
	if !ok {
		return "", os.ErrNotExist
	}
	return p, nil
}
