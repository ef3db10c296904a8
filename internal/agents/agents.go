// Package agents holds the registry of coding-agent tools awt knows how to
// resolve sessions for: the built-in five plus user-defined custom agents
// loaded from an agents.yaml file.
package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Agent describes a coding-agent tool.
type Agent struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Custom  bool   `yaml:"-"`

	// Session discovery settings, only meaningful for custom agents. Built-in
	// agents have dedicated resolver strategies.
	SessionsDir string `yaml:"sessions_dir,omitempty"`
	IDField     string `yaml:"id_field,omitempty"`
	CwdField    string `yaml:"cwd_field,omitempty"`
}

// Builtins returns the built-in agent set in display order.
func Builtins() []Agent {
	return []Agent{
		{ID: "claude", Name: "Claude Code", Command: "claude"},
		{ID: "codex", Name: "Codex CLI", Command: "codex"},
		{ID: "gemini", Name: "Gemini CLI", Command: "gemini"},
		{ID: "opencode", Name: "OpenCode", Command: "opencode"},
		{ID: "qwen", Name: "Qwen Code", Command: "qwen"},
	}
}

// Registry is the merged set of built-in and custom agents.
type Registry struct {
	agents []Agent
	byID   map[string]Agent
}

// NewRegistry builds a registry from the built-ins plus the given custom agents.
func NewRegistry(custom []Agent) (*Registry, error) {
	r := &Registry{byID: make(map[string]Agent)}
	for _, a := range Builtins() {
		r.agents = append(r.agents, a)
		r.byID[a.ID] = a
	}
	for _, a := range custom {
		if a.ID == "" {
			return nil, fmt.Errorf("custom agent missing id")
		}
		if _, exists := r.byID[a.ID]; exists {
			return nil, fmt.Errorf("custom agent %q shadows an existing agent", a.ID)
		}
		if a.SessionsDir == "" {
			return nil, fmt.Errorf("custom agent %q missing sessions_dir", a.ID)
		}
		a.Custom = true
		if a.Name == "" {
			a.Name = a.ID
		}
		r.agents = append(r.agents, a)
		r.byID[a.ID] = a
	}
	return r, nil
}

// customAgentsFile is the on-disk shape of agents.yaml.
type customAgentsFile struct {
	Agents []Agent `yaml:"agents"`
}

// LoadRegistry reads custom agents from path and merges them with the
// built-ins. A missing file yields the built-ins only; a malformed file is an
// error since the user explicitly wrote it.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}

	var parsed customAgentsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}
	return NewRegistry(parsed.Agents)
}

// Get returns the agent with the given id.
func (r *Registry) Get(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// List returns all agents, built-ins first, in registration order.
func (r *Registry) List() []Agent {
	out := make([]Agent, len(r.agents))
	copy(out, r.agents)
	return out
}
