package chunkstore

import (
	"github.com/azadi-go/azadi/internal/chunkerr"
)

const maxDepth = 100

// seenEntry records one link of the active expansion chain, for cycle
// detection and for the recursive reference location of any error
// raised further down the chain.
type seenEntry struct {
	name     string
	location chunkerr.Location
}

// Expand resolves name to its fully expanded line sequence, prefixing
// every line with targetIndent.
func (s *Store) Expand(name string, targetIndent string) ([]string, error) {
	root := chunkerr.Location{File: "<root>", Line: 0}
	return s.expandWithDepth(name, targetIndent, 0, nil, root)
}

func (s *Store) expandWithDepth(name string, targetIndent string, depth int, seen []seenEntry, refLoc chunkerr.Location) ([]string, error) {
	if depth > maxDepth {
		return nil, &chunkerr.RecursionLimit{Chunk: name, Location: refLoc}
	}
	for _, e := range seen {
		if e.name == name {
			return nil, &chunkerr.RecursiveReference{Chunk: name, Location: refLoc}
		}
	}

	c, ok := s.chunks[name]
	if !ok {
		return nil, &chunkerr.UndefinedChunk{Chunk: name, Location: refLoc}
	}

	c.ReferenceCount++
	snapshot := c.clone()
	// seen is passed down by value, so the entry pushed here is gone
	// once this call returns, whether it succeeds or errors.
	seen = append(seen, seenEntry{name: name, location: refLoc})

	var out []string
	for i, raw := range snapshot.Lines {
		lineIndex := i + 1

		if m := s.slot.FindStringSubmatch(raw); m != nil {
			leading := m[1]
			refName := m[2]

			relative := ""
			if len(leading) > snapshot.BaseIndent {
				relative = leading[snapshot.BaseIndent:]
			}

			effective := relative
			if targetIndent != "" {
				effective = targetIndent + relative
			}

			childLoc := chunkerr.Location{
				File: snapshot.Location.File,
				Line: snapshot.Location.Line + lineIndex - 1,
			}

			lines, err := s.expandWithDepth(refName, effective, depth+1, seen, childLoc)
			if err != nil {
				return nil, err
			}
			out = append(out, lines...)
			continue
		}

		content := raw
		if len(content) >= snapshot.BaseIndent {
			content = content[snapshot.BaseIndent:]
		}
		if targetIndent != "" {
			content = targetIndent + content
		}
		out = append(out, content)
	}

	return out, nil
}
