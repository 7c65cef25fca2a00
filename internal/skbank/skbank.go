// Package skbank implements the lazy skeleton bank cache: parsed SK
// bundles are kept resident by (instrument, mode, command) key and
// built only on first reference, per spec §2.11.
package skbank

import (
	"fmt"
	"sync"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/collab"
	"github.com/naojsoft/oscript/internal/obelib"
	"github.com/naojsoft/oscript/internal/obslog"
	"github.com/naojsoft/oscript/internal/paraparse"
	"github.com/naojsoft/oscript/internal/skparse"
)

var log = obslog.Named("skbank")

// Key identifies one skeleton bundle.
type Key struct {
	Instrument string
	Mode       string
	Command    string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Instrument, k.Mode, k.Command)
}

// Bundle is one parsed-but-not-yet-decoded skeleton: its program tree
// and any PARA parameter definitions found alongside it.
type Bundle struct {
	Key    Key
	Header string
	Prog   *ast.Node
	Params *paraparse.Table
}

// Bank is the lazy, size-bounded skeleton cache. Resolution order for
// a miss: ModuleIndex (skeleton source) is required; a PARA file is
// optional and simply yields an empty parameter table when absent.
type Bank struct {
	mu       sync.Mutex
	index    collab.ModuleIndex
	maxSize  int
	order    []Key
	bundles  map[Key]*Bundle
}

// New creates a Bank backed by index, evicting the least-recently-used
// bundle once more than maxSize are resident.
func New(index collab.ModuleIndex, maxSize int) *Bank {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &Bank{index: index, maxSize: maxSize, bundles: map[Key]*Bundle{}}
}

// Get returns the bundle for key, building and caching it on first
// reference (spec §2.11's "lazy" requirement).
func (b *Bank) Get(key Key) (*Bundle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bd, ok := b.bundles[key]; ok {
		b.touch(key)
		return bd, nil
	}

	src, ok := b.index.Resolve(key.String())
	if !ok {
		src, ok = b.index.Resolve(key.Command)
	}
	if !ok {
		return nil, fmt.Errorf("skbank: no skeleton registered for %s", key)
	}

	expanded, err := obelib.ResolveLoads(src, func(name string) (string, error) {
		s, ok := b.index.Resolve(name)
		if !ok {
			return "", fmt.Errorf("skbank: *LOAD target %q not found", name)
		}
		return s, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	sections := obelib.Split(expanded)
	prog, errs := skparse.Parse(sections.Body, 1)
	if len(errs) > 0 {
		log.WithField("key", key.String()).WithField("errors", len(errs)).Warn("skeleton parsed with errors")
	}

	paramSrc, hasParams := b.index.Resolve(key.String() + ".para")
	var params *paraparse.Table
	if hasParams {
		params, _ = paraparse.Parse(paramSrc, 1)
	} else {
		params = paraparse.NewTable()
	}

	bd := &Bundle{Key: key, Header: sections.Header, Prog: prog, Params: params}
	b.bundles[key] = bd
	b.order = append(b.order, key)
	b.evictIfNeeded()
	return bd, nil
}

func (b *Bank) touch(key Key) {
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.order = append(b.order, key)
}

func (b *Bank) evictIfNeeded() {
	for len(b.order) > b.maxSize {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.bundles, oldest)
		log.WithField("key", oldest.String()).Debug("evicted skeleton bundle")
	}
}
