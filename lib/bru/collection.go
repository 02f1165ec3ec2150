package bru

import (
	"slices"
)

// Collection is the model of a collection or folder root file. Only meta is interpreted; every other block is kept
// as it was read so unknown sections survive a decode/encode cycle.
type Collection struct {
	Meta   []Pair  `json:"meta,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Environment is the model of an environment file.
type Environment struct {
	Name      string     `json:"name"`
	Meta      []Pair     `json:"meta,omitempty"`
	Variables []Variable `json:"variables"`
	Blocks    []Block    `json:"blocks,omitempty"`
}

type Variable struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	Secret  bool   `json:"secret"`
}

var collectionTextBlocks = []string{"script:pre-request", "script:post-response", "tests", "docs"}

func collectionBlockKind(name string) BlockKind {
	switch {
	case name == "meta":
		return DictBlock
	case slices.Contains(collectionTextBlocks, name):
		return TextBlock
	}
	return ""
}

func DecodeCollection(text string) (*Collection, error) {
	doc, err := Parse(text, collectionBlockKind)
	if err != nil {
		return &Collection{}, err
	}

	c := &Collection{}
	for b := range slices.Values(doc.Blocks) {
		if b.Name == "meta" {
			c.Meta = append(c.Meta, b.Pairs...)
			continue
		}
		c.Blocks = append(c.Blocks, b)
	}
	return c, nil
}

func EncodeCollection(c *Collection) string {
	var blocks []Block
	blocks = appendDict(blocks, "meta", c.Meta)
	blocks = append(blocks, c.Blocks...)
	return Format(blocks)
}

func environmentBlockKind(name string) BlockKind {
	if name == "meta" || name == "vars" {
		return DictBlock
	}
	return collectionBlockKind(name)
}

// DecodeEnvironment converts environment text. fallbackName names the environment when meta carries no name.
func DecodeEnvironment(text, fallbackName string) (*Environment, error) {
	doc, err := Parse(text, environmentBlockKind)
	if err != nil {
		return &Environment{Name: fallbackName, Variables: []Variable{}}, err
	}

	env := &Environment{Name: fallbackName, Variables: []Variable{}}
	for b := range slices.Values(doc.Blocks) {
		switch b.Name {
		case "meta":
			env.Meta = append(env.Meta, b.Pairs...)
			if name := pairValue(b.Pairs, "name"); name != "" {
				env.Name = name
			}
		case "vars":
			for p := range slices.Values(b.Pairs) {
				env.Variables = append(env.Variables, Variable{Name: p.Name, Value: p.Value, Enabled: p.Enabled})
			}
		case "vars:secret":
			for item := range slices.Values(b.Items) {
				env.Variables = append(env.Variables, Variable{Name: item.Name, Enabled: item.Enabled, Secret: true})
			}
		default:
			env.Blocks = append(env.Blocks, b)
		}
	}
	return env, nil
}

// EncodeEnvironment renders an environment. Secret variables are written by name only; their values never reach
// the file.
func EncodeEnvironment(env *Environment) string {
	var blocks []Block
	blocks = appendDict(blocks, "meta", env.Meta)

	var vars, secrets []Pair
	for v := range slices.Values(env.Variables) {
		if v.Secret {
			secrets = append(secrets, Pair{Name: v.Name, Enabled: v.Enabled})
			continue
		}
		vars = append(vars, Pair{Name: v.Name, Value: v.Value, Enabled: v.Enabled})
	}
	blocks = appendDict(blocks, "vars", vars)
	if len(secrets) > 0 {
		blocks = append(blocks, Block{Name: "vars:secret", Kind: ListBlock, Items: secrets})
	}
	blocks = append(blocks, env.Blocks...)

	return Format(blocks)
}
