package courseconfig

import (
	"path/filepath"

	"github.com/mlahtinen/gradery/internal/domain"
)

// TemplateRenderer renders an include file through a templating collaborator
// before it is parsed. It is an external interface; the core only needs this
// contract.
type TemplateRenderer interface {
	Render(templatePath string, context map[string]any) (string, error)
}

// resolveIncludes merges the config files named by doc's "include" directive
// into doc. A non-forced include must not collide with an existing key; with
// force the included keys overwrite. The returned path list names every
// included file, for cache invalidation.
func (s *Store) resolveIncludes(doc Document, targetFile, courseDir string) (Document, []string, error) {
	raw, ok := doc["include"]
	if !ok {
		return doc, nil, nil
	}
	list, ok := asList(raw)
	if !ok {
		return nil, nil, domain.Configf(targetFile,
			`the value of the "include" field must be a list of mappings`)
	}

	merged := doc.clone()
	var files []string

	for _, item := range list {
		entry, ok := asMap(item)
		if !ok {
			return nil, nil, domain.Configf(targetFile,
				`the value of the "include" field must be a list of mappings`)
		}
		name := getString(entry, "file")
		if name == "" {
			return nil, nil, domain.Configf(targetFile, `required field "file" missing from include entry`)
		}

		includeFile, err := FindConfig(filepath.Join(courseDir, name))
		if err != nil {
			return nil, nil, err
		}
		files = append(files, includeFile)

		var included Document
		if ctx, ok := entry["template_context"]; ok {
			ctxMap, ok := asMap(ctx)
			if !ok {
				return nil, nil, domain.Configf(targetFile, "template_context must be a mapping")
			}
			if s.renderer == nil {
				return nil, nil, domain.Configf(targetFile,
					"include uses template_context but no template renderer is configured")
			}
			rendered, err := s.renderer.Render(includeFile, ctxMap)
			if err != nil {
				return nil, nil, &domain.ConfigError{File: targetFile,
					Msg: "error rendering the config file to be included", Err: err}
			}
			included, err = parseBytes([]byte(rendered), includeFile)
			if err != nil {
				return nil, nil, err
			}
		} else {
			included, err = ParseFile(includeFile)
			if err != nil {
				return nil, nil, err
			}
		}

		if len(included) == 0 {
			return nil, nil, domain.Configf(targetFile, "included config file %q is empty or not a mapping", includeFile)
		}

		force := getBool(entry, "force")
		for _, key := range sortedKeys(included) {
			value := included[key]
			if existing, exists := merged[key]; exists && !force {
				return nil, nil, &domain.IncludeConflictError{
					Key:          key,
					TargetFile:   targetFile,
					IncludeFile:  includeFile,
					TargetValue:  existing,
					IncludeValue: value,
				}
			}
			merged[key] = value
		}
	}
	return merged, files, nil
}
