package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	prompt, err := reg.Get("osint-search")
	require.NoError(t, err)
	require.Contains(t, prompt.Config.SystemTemplate, "FICTIONAL")
	require.Contains(t, prompt.Config.UserTemplate, "{{query}}")
	require.NotEmpty(t, prompt.Config.ResponseSchema)
	require.Equal(t, []string{"query"}, prompt.Config.Input.RequiredVariables)
}

func TestLoadBodyBecomesSystemTemplate(t *testing.T) {
	data := []byte("---\nslug: demo\nuser_template: \"{{query}}\"\n---\nYou are terse.\n")
	prompt, err := Load("demo.md", data)
	require.NoError(t, err)
	require.Equal(t, "demo", prompt.Config.Slug)
	require.Equal(t, "You are terse.", prompt.Config.SystemTemplate)
	require.Equal(t, "demo.md", prompt.Source)
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"empty", "   ", "empty prompt"},
		{"no system", "---\nslug: demo\n---\n", "missing system_template"},
		{"no slug", "---\nname: x\n---\nbody", "slug is required"},
		{"unreferenced variable", "---\nslug: demo\ninput:\n  required_variables: [query]\n---\nbody", "not referenced"},
		{"bad schema", "---\nslug: demo\nresponse_schema:\n  type: 12\n---\nbody", "response_schema"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("x.md", []byte(tc.data))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nslug: a\n---\nfirst"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\nslug: b\n---\nsecond"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("nope"), 0o600))

	prompts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)
	require.Len(t, reg.List(), 2)
	require.Equal(t, "a", reg.List()[0].Config.Slug)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	p := &Prompt{Config: Config{Slug: "dup"}}
	_, err := NewRegistry([]*Prompt{p, p})
	require.ErrorContains(t, err, "duplicate")

	reg, err := NewRegistry([]*Prompt{p})
	require.NoError(t, err)
	_, err = reg.Get("missing")
	require.ErrorContains(t, err, "not found")
	_, err = reg.Get(" ")
	require.ErrorContains(t, err, "required")
}

func TestRender(t *testing.T) {
	out := Render("Analyze {{query}} now; keep {{other}}", map[string]string{"query": "Jane Doe"})
	require.Equal(t, "Analyze Jane Doe now; keep {{other}}", out)
	require.Equal(t, "same", Render("same", nil))
}

func TestLoadFromDirRequiresDirectory(t *testing.T) {
	_, err := LoadFromDir(filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "scan prompts")
}

func TestLoadAcceptsCRLFAndPlainYAML(t *testing.T) {
	prompt, err := Load("crlf.md", []byte("---\r\nslug: crlf\r\n---\r\nBe brief.\r\n"))
	require.NoError(t, err)
	require.Equal(t, "crlf", prompt.Config.Slug)
	require.Equal(t, "Be brief.", prompt.Config.SystemTemplate)

	prompt, err = Load("plain.yaml", []byte("slug: plain\nsystem_template: Answer in JSON.\n"))
	require.NoError(t, err)
	require.Equal(t, "Answer in JSON.", prompt.Config.SystemTemplate)
}
