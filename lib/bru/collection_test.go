package bru_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/lib/bru"
)

func TestCollectionPassThrough(t *testing.T) {
	t.Parallel()

	text := `meta {
  name: Users API
  seq: 1
}

headers {
  X-Team: platform
}

auth {
  mode: bearer
}

script:pre-request {
  console.log("collection");
}

x-custom-notes {
  Anything at all can live here.
  Even { braces }.
}
`
	c, err := bru.DecodeCollection(text)
	require.NoError(t, err)

	assert.Equal(t, []bru.Pair{
		{Name: "name", Value: "Users API", Enabled: true},
		{Name: "seq", Value: "1", Enabled: true},
	}, c.Meta)
	require.Len(t, c.Blocks, 4)
	assert.Equal(t, bru.DictBlock, c.Blocks[0].Kind)
	assert.Equal(t, bru.TextBlock, c.Blocks[2].Kind)
	assert.Equal(t, "x-custom-notes", c.Blocks[3].Name)
	assert.Equal(t, bru.TextBlock, c.Blocks[3].Kind)

	again, err := bru.DecodeCollection(bru.EncodeCollection(c))
	require.NoError(t, err)
	assert.Equal(t, c, again)
	assert.Equal(t, text, bru.EncodeCollection(c))
}

func TestCollectionDecodeError(t *testing.T) {
	t.Parallel()

	c, err := bru.DecodeCollection("meta {\n  name: x\n")
	require.Error(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.Meta)
}

func TestEnvironment(t *testing.T) {
	t.Parallel()

	text := `vars {
  host: https://api.example.com
  ~debug: true
}

vars:secret [
  token,
  ~password
]
`
	env, err := bru.DecodeEnvironment(text, "staging")
	require.NoError(t, err)

	assert.Equal(t, "staging", env.Name)
	assert.Equal(t, []bru.Variable{
		{Name: "host", Value: "https://api.example.com", Enabled: true},
		{Name: "debug", Value: "true", Enabled: false},
		{Name: "token", Enabled: true, Secret: true},
		{Name: "password", Enabled: false, Secret: true},
	}, env.Variables)

	assert.Equal(t, text, bru.EncodeEnvironment(env))
}

func TestEnvironmentSecretValuesNotWritten(t *testing.T) {
	t.Parallel()

	text := bru.EncodeEnvironment(&bru.Environment{
		Name: "prod",
		Variables: []bru.Variable{
			{Name: "token", Value: "s3cr3t", Enabled: true, Secret: true},
		},
	})
	assert.NotContains(t, text, "s3cr3t")
	assert.Contains(t, text, "vars:secret [")
}

func TestEnvironmentSecretNamesRoundTrip(t *testing.T) {
	t.Parallel()

	env := &bru.Environment{
		Name: "staging",
		Variables: []bru.Variable{
			{Name: "api key", Value: "k", Enabled: true},
			{Name: "a,b", Enabled: true, Secret: true},
			{Name: "~off", Enabled: false, Secret: true},
			{Name: "plain", Enabled: true, Secret: true},
		},
	}

	out, err := bru.DecodeEnvironment(bru.EncodeEnvironment(env), "staging")
	require.NoError(t, err)
	assert.Equal(t, env.Variables, out.Variables)
}
