// Package manifest resolves named deployment targets into ordered manifest
// document sets with pinned component versions substituted in.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/streamforge-platform/streamforge/internal/version"
)

// Document is one manifest document from a resolved target, in apply order.
type Document struct {
	// Source is "<target>/<file>#<doc-index>", used in apply errors.
	Source string
	// Raw is the document text after version substitution.
	Raw []byte
	// Object is the decoded form handed to the cluster API.
	Object *unstructured.Unstructured
}

// Resolver maps target names to manifest directories under Root.
//
// A target is a directory of YAML files; files are applied in lexical order
// and documents within a file in file order, so target authors control
// ordering by file naming.
type Resolver struct {
	Root       string
	Components map[string]version.Component

	// current caches each component's registered-file version token.
	current map[string]string
}

// Resolve reads the target's manifest files, substitutes each pin's version
// for the component's embedded token, and returns the ordered document set.
//
// Resolution is deterministic: identical overlay contents and pins yield
// byte-identical documents.
func (r *Resolver) Resolve(target string, pins ...version.Pinned) ([]Document, error) {
	dir := filepath.Join(r.Root, target)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &UnknownTargetError{Target: target}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest: read target %s: %w", target, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, &UnknownTargetError{Target: target}
	}

	var docs []Document
	for _, file := range files {
		raw, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("manifest: read %s/%s: %w", target, file, err)
		}
		content := string(raw)
		for _, pin := range pins {
			content, err = r.substitute(content, pin)
			if err != nil {
				return nil, fmt.Errorf("manifest: %s/%s: %w", target, file, err)
			}
		}
		split, err := splitDocuments(target, file, content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, split...)
	}
	return docs, nil
}

// substitute replaces the component's embedded version token with the
// pinned version. A file that does not reference the component is left
// untouched; a file that does is rewritten at every occurrence of the
// embedded version so no document stays on the old version.
//
// Files that carry the version only in fields the marker does not anchor
// (annotations, image tags) have no token of their own; for those the
// version embedded in the component's registered files is substituted
// instead.
func (r *Resolver) substitute(content string, pin version.Pinned) (string, error) {
	c, ok := r.Components[pin.Component]
	if !ok {
		return "", &version.UnknownComponentError{Component: pin.Component}
	}
	embedded := c.FindToken(content)
	if embedded == "" {
		current, err := r.currentFor(c)
		if err != nil {
			return "", err
		}
		embedded = current
	}
	if embedded == pin.Version || !strings.Contains(content, embedded) {
		return content, nil
	}
	return strings.ReplaceAll(content, embedded, pin.Version), nil
}

// currentFor returns the version token embedded in the component's first
// registered file, cached for the resolver's lifetime.
func (r *Resolver) currentFor(c version.Component) (string, error) {
	if v, ok := r.current[c.Name]; ok {
		return v, nil
	}
	raw, err := os.ReadFile(filepath.Join(r.Root, c.Files[0]))
	if err != nil {
		return "", fmt.Errorf("read registered file %s: %w", c.Files[0], err)
	}
	token := c.FindToken(string(raw))
	if token == "" {
		return "", &version.NotFoundError{Component: c.Name, File: c.Files[0]}
	}
	if r.current == nil {
		r.current = map[string]string{}
	}
	r.current[c.Name] = token
	return token, nil
}

// splitDocuments splits a multi-document YAML file and decodes each
// document.
func splitDocuments(target, file, content string) ([]Document, error) {
	var docs []Document
	for i, part := range strings.Split(content, "\n---") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "---")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		source := fmt.Sprintf("%s/%s#%d", target, file, i)
		var obj map[string]interface{}
		if err := yaml.Unmarshal([]byte(part), &obj); err != nil {
			return nil, fmt.Errorf("manifest: decode %s: %w", source, err)
		}
		if len(obj) == 0 {
			continue
		}
		docs = append(docs, Document{
			Source: source,
			Raw:    []byte(part),
			Object: &unstructured.Unstructured{Object: obj},
		})
	}
	return docs, nil
}
