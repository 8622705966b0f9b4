package chunkstore

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/azadi-go/azadi/internal/chunkerr"
	"github.com/azadi-go/azadi/internal/pathguard"
)

func escapeAll(markers []string) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = regexp.QuoteMeta(m)
	}
	return out
}

// compile builds the Open, Slot, and Close expressions from the
// store's Config, escaping every literal delimiter/marker
// individually before alternation so a delimiter containing a regex
// metacharacter still matches literally. An empty CommentMarkers list
// degrades the alternation to an optional empty group.
func (s *Store) compile() {
	open := regexp.QuoteMeta(s.Config.OpenDelim)
	close_ := regexp.QuoteMeta(s.Config.CloseDelim)
	end := regexp.QuoteMeta(s.Config.ChunkEnd)

	var commentGroup string
	if len(s.Config.CommentMarkers) > 0 {
		commentGroup = "(?:" + strings.Join(escapeAll(s.Config.CommentMarkers), "|") + ")?"
	} else {
		commentGroup = "(?:)?"
	}

	// Open: ^(\s*)(?:CM)?[ \t]*OPEN(?:@replace[ \t]+)?(?:@file[ \t]+)?([^\s]+)CLOSE=
	s.open = regexp.MustCompile(`^(\s*)` + commentGroup + `[ \t]*` + open +
		`(?:@replace[ \t]+)?(?:@file[ \t]+)?([^\s]+)` + close_ + `=`)

	// Slot: (\s*)(?:CM)?[ \t]*OPEN(?:@file[ \t]+)?([^\s]+)CLOSE\s*$
	s.slot = regexp.MustCompile(`(\s*)` + commentGroup + `[ \t]*` + open +
		`(?:@file[ \t]+)?([^\s]+)` + close_ + `\s*$`)

	// Close: ^(?:CM)?[ \t]*ENDMARK\s*$
	s.close = regexp.MustCompile(`^` + commentGroup + `[ \t]*` + end + `\s*$`)
}

// Read parses text (labeled fileLabel for diagnostics) and merges its
// chunk definitions into the store. Malformed directives are silently
// ignored; Read has no error return.
func (s *Store) Read(text string, fileLabel string) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current string
	haveCurrent := false
	line := 0

	for scanner.Scan() {
		raw := scanner.Text()

		if m := s.open.FindStringSubmatch(raw); m != nil {
			indent := m[1]
			baseName := m[2]
			matched := m[0]
			replace := strings.Contains(matched, "@replace")
			isFile := strings.Contains(matched, "@file")

			key := baseName
			if isFile {
				key = FileChunkPrefix + baseName
			}

			if err := validateKey(key); err != nil {
				s.log.WithError(err).WithField("file", fileLabel).Debug("ignoring invalid chunk directive")
				line++
				continue
			}

			if replace {
				delete(s.chunks, key)
			}

			if _, exists := s.chunks[key]; !exists {
				// Fresh insert: either first declaration, or a
				// @replace that just discarded the old one. Either
				// way this directive's indent/location wins.
				s.chunks[key] = &Chunk{
					Name:       key,
					BaseIndent: len(indent),
					Location:   chunkerr.Location{File: fileLabel, Line: line},
				}
				s.insertOrder = append(s.insertOrder, key)
			}
			// A bare re-open of an existing name appends to it:
			// base_indent and location stay first-declared.
			current = key
			haveCurrent = true
			line++
			continue
		}

		if s.close.MatchString(raw) {
			haveCurrent = false
			current = ""
			line++
			continue
		}

		if haveCurrent {
			content := raw
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			s.chunks[current].Lines = append(s.chunks[current].Lines, content)
		}

		line++
	}

	s.rebuildFileChunks()
}

// validateKey enforces chunk name rules: non-empty, no whitespace, and
// (for file-chunk names) a non-empty, PathGuard-safe path following
// the "@file " prefix.
func validateKey(key string) error {
	if key == "" {
		return &chunkerr.SecurityViolation{Reason: "chunk name must not be empty"}
	}
	if IsFileChunk(key) {
		p := FilePath(key)
		if p == "" {
			return &chunkerr.SecurityViolation{Reason: "file-chunk path must not be empty"}
		}
		if strings.ContainsAny(p, " \t") {
			return &chunkerr.SecurityViolation{Reason: "file-chunk path must not contain whitespace"}
		}
		if err := pathguard.Check(p); err != nil {
			if v, ok := err.(*pathguard.Violation); ok {
				return &chunkerr.SecurityViolation{Reason: v.Reason}
			}
			return &chunkerr.SecurityViolation{Reason: err.Error()}
		}
		return nil
	}
	if strings.ContainsAny(key, " \t\n\r") {
		return &chunkerr.SecurityViolation{Reason: "chunk name must not contain whitespace"}
	}
	return nil
}
