// Package prompt builds the text sent to the completion provider: a fixed
// system prompt, the user's question and a closing instruction.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDelimiter = "\n\nUser Question: "
	DefaultSuffix    = "\n\nPlease provide a helpful response:"
)

//go:embed w2w.yaml
var defaultSpec []byte

// Spec is the on-disk prompt definition.
type Spec struct {
	Name      string `yaml:"name"`
	System    string `yaml:"system"`
	Delimiter string `yaml:"delimiter"`
	Suffix    string `yaml:"suffix"`
}

// LoadSpec reads a prompt spec from path, or the embedded W2W prompt when
// path is empty.
func LoadSpec(path string) (Spec, error) {
	b := defaultSpec
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return Spec{}, fmt.Errorf("read prompt file: %w", err)
		}
	}
	return ParseSpec(b)
}

func ParseSpec(b []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return Spec{}, fmt.Errorf("parse prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return Spec{}, errors.New("prompt spec: system prompt is empty")
	}
	if spec.Delimiter == "" {
		spec.Delimiter = DefaultDelimiter
	}
	if spec.Suffix == "" {
		spec.Suffix = DefaultSuffix
	}
	if spec.Name == "" {
		spec.Name = "custom"
	}
	return spec, nil
}

// Assembler is immutable after construction and safe for concurrent use.
type Assembler struct {
	spec Spec
}

func NewAssembler(spec Spec) *Assembler {
	return &Assembler{spec: spec}
}

// Assemble returns system + delimiter + message + suffix.
func (a *Assembler) Assemble(message string) string {
	var b strings.Builder
	b.Grow(len(a.spec.System) + len(a.spec.Delimiter) + len(message) + len(a.spec.Suffix))
	b.WriteString(a.spec.System)
	b.WriteString(a.spec.Delimiter)
	b.WriteString(message)
	b.WriteString(a.spec.Suffix)
	return b.String()
}

// Name identifies the prompt, e.g. for cache namespacing.
func (a *Assembler) Name() string { return a.spec.Name }
