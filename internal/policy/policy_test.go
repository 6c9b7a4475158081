package policy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hldup/hldup/internal/dedupe"
)

func sampleGroup() *dedupe.Group {
	return &dedupe.Group{
		Canonical: &dedupe.LogicalFile{Paths: []string{"/data/a"}, Size: 5},
		Dups: []*dedupe.LogicalFile{
			{Paths: []string{"/data/b"}, Size: 5},
			{Paths: []string{"/data/c", "/data/c2"}, Size: 5},
		},
		Size: 5,
	}
}

func TestAcceptAllAndRejectAll(t *testing.T) {
	g := sampleGroup()
	assert.True(t, AcceptAll{}.Decide(g))
	assert.False(t, RejectAll{}.Decide(g))
}

func TestInteractive_Responses(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"Yes\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"yep\n", false},
		{"", false}, // EOF before any input declines
	}

	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.input)+"_input", func(t *testing.T) {
			var out bytes.Buffer
			p := NewInteractive(strings.NewReader(tc.input), &out)
			assert.Equal(t, tc.want, p.Decide(sampleGroup()))
		})
	}
}

func TestInteractive_PromptContents(t *testing.T) {
	var out bytes.Buffer
	p := NewInteractive(strings.NewReader("n\n"), &out)
	require.False(t, p.Decide(sampleGroup()))

	prompt := out.String()
	assert.Contains(t, prompt, "/data/a")
	assert.Contains(t, prompt, "/data/b")
	assert.Contains(t, prompt, "/data/c")
	assert.Contains(t, prompt, "/data/c2")
	assert.Contains(t, prompt, "10 B") // 2 duplicate logical files x 5 bytes
	assert.Contains(t, prompt, "[y/N]")
}

func TestInteractive_OneDecisionPerGroup(t *testing.T) {
	var out bytes.Buffer
	p := NewInteractive(strings.NewReader("y\nn\n"), &out)

	assert.True(t, p.Decide(sampleGroup()))
	assert.False(t, p.Decide(sampleGroup()))
}
