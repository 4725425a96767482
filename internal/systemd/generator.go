package systemd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Generator renders and writes service unit files.
type Generator struct {
	systemdDir string // directory unit files are written to
}

// NewGeneratorInDir creates a generator writing into dir.
func NewGeneratorInDir(dir string) *Generator {
	return &Generator{systemdDir: dir}
}

// GenerateService renders the default unit for name after validating it.
func (g *Generator) GenerateService(name string) (string, error) {
	name, err := ValidateServiceName(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("service").Parse(DefaultServiceTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse service template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, DefaultServiceUnitData(name)); err != nil {
		return "", fmt.Errorf("failed to execute service template: %w", err)
	}

	return buf.String(), nil
}

// UnitPath returns where the unit file for name would be written.
func (g *Generator) UnitPath(name string) string {
	return filepath.Join(g.systemdDir, unitName(strings.TrimSpace(name)))
}

// WriteService renders the default unit for name and writes it.
func (g *Generator) WriteService(name string) (string, error) {
	content, err := g.GenerateService(name)
	if err != nil {
		return "", err
	}

	path := g.UnitPath(name)
	if err := g.WriteUnitFile(filepath.Base(path), content); err != nil {
		return "", fmt.Errorf("failed to write service file: %w", err)
	}

	return path, nil
}

// WriteUnitFile writes a unit file into the generator's directory.
func (g *Generator) WriteUnitFile(filename, content string) error {
	if err := os.MkdirAll(g.systemdDir, 0755); err != nil {
		return fmt.Errorf("failed to create systemd directory: %w", err)
	}

	path := filepath.Join(g.systemdDir, filename)
	return os.WriteFile(path, []byte(content), 0644)
}
