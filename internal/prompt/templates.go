package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.md
var templateFS embed.FS

// templateMeta is the YAML frontmatter carried by each section template.
type templateMeta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// templates maps template name to its body, loaded once at startup.
var templates = loadTemplates()

func loadTemplates() map[string]string {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		panic(fmt.Sprintf("reading embedded templates: %v", err))
	}

	yamlFormat := frontmatter.NewFormat("---", "---", yaml.Unmarshal)
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := templateFS.ReadFile("templates/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("reading embedded template %s: %v", e.Name(), err))
		}
		var meta templateMeta
		body, err := frontmatter.Parse(bytes.NewReader(data), &meta, yamlFormat)
		if err != nil || meta.Name == "" {
			panic(fmt.Sprintf("template %s has invalid frontmatter: %v", e.Name(), err))
		}
		out[meta.Name] = strings.TrimSpace(string(body))
	}
	return out
}
