// Package obelib holds the file-level mechanics that sit below
// lexing: splitting an SK file into its header and command sections,
// harvesting header/param text for documentation, and resolving *LOAD
// recursive inclusion. These are supplemented features pulled from
// original_source/ (oscript/util/ope.py's header-splitting helpers and
// skTask.py's collect_params) that spec.md's distillation omitted.
package obelib

import (
	"fmt"
	"regexp"
	"strings"
)

// Sections is the result of splitting one SK/OPE source file.
type Sections struct {
	// Header is everything before the command section marker: the text
	// harvested for parameter and description documentation.
	Header string
	// Body is the command-section text, starting at :START (or the
	// first old-style <Header> sibling marker) through :END inclusive.
	Body string
}

var newStyleStart = regexp.MustCompile(`(?m)^\s*:START\b`)
var oldStyleHeader = regexp.MustCompile(`(?is)<Header>(.*?)</Header>`)

// Split separates src into its header and command-section text,
// supporting both the old <Header>...</Header> bracketing and the
// newer bare :START marker convention.
func Split(src string) Sections {
	if loc := oldStyleHeader.FindStringSubmatchIndex(src); loc != nil {
		header := src[loc[2]:loc[3]]
		body := src[loc[1]:]
		return Sections{Header: header, Body: body}
	}
	if loc := newStyleStart.FindStringIndex(src); loc != nil {
		return Sections{Header: src[:loc[0]], Body: src[loc[0]:]}
	}
	return Sections{Header: "", Body: src}
}

var paramCommentRe = regexp.MustCompile(`(?m)^\s*#\s*([A-Za-z_][\w]*)\s*:\s*(.*)$`)

// CollectParams harvests "# NAME: description" header comment lines
// into a name -> description map, grounded on skTask.py's
// collect_params sweep of a skeleton's leading comment block.
func CollectParams(header string) map[string]string {
	out := map[string]string{}
	for _, m := range paramCommentRe.FindAllStringSubmatch(header, -1) {
		out[strings.ToUpper(m[1])] = strings.TrimSpace(m[2])
	}
	return out
}

var loadDirectiveRe = regexp.MustCompile(`(?m)^\s*\*LOAD\s+"([^"]+)"\s*$`)

// Loader resolves a *LOAD target name to source text. The skeleton bank
// backs it with its ModuleIndex; obsconfig.Config.IncludePaths is not
// consulted.
type Loader func(name string) (string, error)

// ResolveLoads expands every `*LOAD "name"` directive in src by
// replacing the line with the loaded file's own (recursively
// expanded) contents. path tracks the inclusion chain for cycle
// detection; cycles are reported as an error rather than recursing
// forever (spec §7).
func ResolveLoads(src string, load Loader, chain []string) (string, error) {
	var resolveErr error
	out := loadDirectiveRe.ReplaceAllStringFunc(src, func(line string) string {
		if resolveErr != nil {
			return line
		}
		m := loadDirectiveRe.FindStringSubmatch(line)
		name := m[1]
		for _, seen := range chain {
			if seen == name {
				resolveErr = fmt.Errorf("*LOAD cycle detected: %s -> %s", strings.Join(chain, " -> "), name)
				return line
			}
		}
		included, err := load(name)
		if err != nil {
			resolveErr = fmt.Errorf("*LOAD %q: %w", name, err)
			return line
		}
		expanded, err := ResolveLoads(included, load, append(chain, name))
		if err != nil {
			resolveErr = err
			return line
		}
		return expanded
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}
