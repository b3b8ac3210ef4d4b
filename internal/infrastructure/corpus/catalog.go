package corpus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// Catalog loads the law table from the corpus root. It prefers laws.yaml
// (an ordered list of id/name entries) and falls back to the legacy
// alias.txt key=value format. Order is preserved: it drives shortlist
// tie-breaking.
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) Load(_ context.Context) ([]domain.Law, error) {
	yamlPath := filepath.Join(c.dir, "laws.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return loadYAMLCatalog(yamlPath)
	}

	txtPath := filepath.Join(c.dir, "alias.txt")
	if _, err := os.Stat(txtPath); err == nil {
		return loadAliasCatalog(txtPath)
	}

	return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog",
		fmt.Errorf("neither laws.yaml nor alias.txt found in %s", c.dir))
}

func loadYAMLCatalog(path string) ([]domain.Law, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog", err)
	}
	var laws []domain.Law
	if err := yaml.Unmarshal(raw, &laws); err != nil {
		return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog", err)
	}
	return validateCatalog(laws)
}

func loadAliasCatalog(path string) ([]domain.Law, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog", err)
	}
	defer f.Close()

	var laws []domain.Law
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, name, ok := strings.Cut(line, "=")
		if !ok {
			return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog",
				fmt.Errorf("malformed line %q", line))
		}
		laws = append(laws, domain.Law{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog", err)
	}
	return validateCatalog(laws)
}

func validateCatalog(laws []domain.Law) ([]domain.Law, error) {
	if len(laws) == 0 {
		return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog", errors.New("catalog is empty"))
	}
	for _, law := range laws {
		if law.ID == "" || law.Name == "" {
			return nil, domain.WrapError(domain.ErrAliasConfigMissing, "load catalog",
				fmt.Errorf("entry with empty id or name: %+v", law))
		}
	}
	return laws, nil
}
