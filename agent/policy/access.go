package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownRole   = errors.New("unknown role")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrPolicyInvalid = errors.New("policy table is invalid")
)

//go:embed policy.yaml
var defaultTable []byte

type table struct {
	Roles        map[string][]string `yaml:"roles"`
	Confirmation map[string]bool     `yaml:"confirmation"`
}

// Access answers which role may call which tool and which tools need an
// explicit yes from the user. It is immutable after load.
type Access struct {
	allowed map[contractx.Role]map[contractx.ToolName]struct{}
	confirm map[contractx.ToolName]bool
}

// Default returns the table embedded in the binary.
func Default() *Access {
	a, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded policy table: %v", err))
	}
	return a
}

// Load reads a table from path, or returns Default when path is empty.
func Load(path string) (*Access, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Access, error) {
	var raw table
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}

	a := &Access{
		allowed: make(map[contractx.Role]map[contractx.ToolName]struct{}, len(raw.Roles)),
		confirm: make(map[contractx.ToolName]bool, len(raw.Confirmation)),
	}

	for rawRole, tools := range raw.Roles {
		role, err := contractx.ParseRole(rawRole)
		if err != nil {
			return nil, fmt.Errorf("%w: %w %q", ErrPolicyInvalid, ErrUnknownRole, rawRole)
		}
		set := make(map[contractx.ToolName]struct{}, len(tools))
		for _, name := range tools {
			tool := contractx.ToolName(name)
			if !tool.Valid() {
				return nil, fmt.Errorf("%w: role %s: %w %q", ErrPolicyInvalid, role, ErrUnknownTool, name)
			}
			set[tool] = struct{}{}
		}
		a.allowed[role] = set
	}

	for name, needs := range raw.Confirmation {
		tool := contractx.ToolName(name)
		if !tool.Valid() {
			return nil, fmt.Errorf("%w: confirmation: %w %q", ErrPolicyInvalid, ErrUnknownTool, name)
		}
		a.confirm[tool] = needs
	}
	// yaml.v3 already rejects duplicate keys, so only missing entries remain.
	for _, tool := range contractx.AllTools {
		if _, ok := a.confirm[tool]; !ok {
			return nil, fmt.Errorf("%w: no confirmation entry for %s", ErrPolicyInvalid, tool)
		}
	}

	return a, nil
}

func (a *Access) CanCall(role contractx.Role, tool contractx.ToolName) bool {
	_, ok := a.allowed[role][tool]
	return ok
}

func (a *Access) NeedsConfirmation(tool contractx.ToolName) bool {
	return a.confirm[tool]
}
