// Package ednl reads and writes the record files: one EDN map per line.
//
// Files are rewritten whole on every mutation. The write path goes through a
// sibling temp file with an fsync and a rename, so readers never observe a
// torn file. Keys the current version does not know about survive a round
// trip verbatim.
package ednl

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"olympos.io/encoding/edn"

	"github.com/taskmill/mcp-tasks/internal/task"
)

// knownKeys are the record keys owned by this version. Anything else read
// from disk lands in Task.Extra.
var knownKeys = map[edn.Keyword]bool{
	"id":             true,
	"parent-id":      true,
	"title":          true,
	"description":    true,
	"design":         true,
	"category":       true,
	"type":           true,
	"status":         true,
	"meta":           true,
	"relations":      true,
	"shared-context": true,
	"session-events": true,
	"code-reviewed":  true,
	"pr-num":         true,
}

// Read parses a record file. A missing file is an empty file; any parse
// error is fatal and reported with its line number.
func Read(path string) ([]*task.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var tasks []*task.Task
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		t, err := decodeRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
		}
		tasks = append(tasks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return tasks, nil
}

// decodeRecord parses one line into a Task, catching unknown keys.
func decodeRecord(line []byte) (*task.Task, error) {
	var t task.Task
	if err := edn.Unmarshal(line, &t); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}

	// Second pass over the raw map to pick up keys the struct dropped.
	var raw map[edn.Keyword]any
	if err := edn.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	for k, v := range raw {
		if !knownKeys[k] {
			if t.Extra == nil {
				t.Extra = make(map[edn.Keyword]any)
			}
			t.Extra[k] = v
		}
	}

	// Collections are always concrete so later writes stay stable.
	if t.Meta == nil {
		t.Meta = map[string]string{}
	}
	if t.Relations == nil {
		t.Relations = []task.Relation{}
	}
	return &t, nil
}

// EncodeRecord renders a task as a single EDN line, unknown keys included.
func EncodeRecord(t *task.Task) ([]byte, error) {
	b, err := edn.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode record %d: %w", t.ID, err)
	}
	if len(t.Extra) == 0 {
		return b, nil
	}

	// Splice preserved unknown keys before the closing brace, sorted for a
	// deterministic file.
	keys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var extra strings.Builder
	for _, k := range keys {
		vb, err := edn.Marshal(t.Extra[edn.Keyword(k)])
		if err != nil {
			return nil, fmt.Errorf("encode record %d key %s: %w", t.ID, k, err)
		}
		extra.WriteString(" :")
		extra.WriteString(k)
		extra.WriteString(" ")
		extra.Write(vb)
	}

	body := bytes.TrimSuffix(bytes.TrimSpace(b), []byte("}"))
	out := make([]byte, 0, len(body)+extra.Len()+1)
	out = append(out, body...)
	out = append(out, extra.String()...)
	out = append(out, '}')
	return out, nil
}

// Write atomically replaces path with the given records, one per line.
func Write(path string, tasks []*task.Task) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, t := range tasks {
		line, err := EncodeRecord(t)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(line); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
