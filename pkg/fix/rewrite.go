package fix

import (
	"bytes"
	"fmt"
	"sort"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type span struct {
	start, end int
	text       string
}

// Rewrite applies edits to src and returns the new content. Edits may come
// in any order but must not overlap.
func Rewrite(src []byte, edits []Edit) ([]byte, error) {
	starts := lineStarts(src)
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		s, err := resolve(src, starts, e)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return nil, fmt.Errorf("overlapping edits at byte %d", spans[i].start)
		}
	}

	var out bytes.Buffer
	out.Grow(len(src))
	prev := 0
	for _, s := range spans {
		out.Write(src[prev:s.start])
		out.WriteString(s.text)
		prev = s.end
	}
	out.Write(src[prev:])
	return out.Bytes(), nil
}

func resolve(src []byte, starts []int, e Edit) (span, error) {
	switch e.Op {
	case OpReplace:
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return span{}, fmt.Errorf("edit %d..%d outside file of %d bytes", e.Start, e.End, len(src))
		}
		return span{e.Start, e.End, e.Text}, nil
	case OpDeleteLines:
		if e.Line < 1 || e.EndLine < e.Line || e.EndLine > len(starts) {
			return span{}, fmt.Errorf("lines %d..%d outside file of %d lines", e.Line, e.EndLine, len(starts))
		}
		start := starts[e.Line-1]
		if start == 0 && bytes.HasPrefix(src, utf8BOM) {
			start = len(utf8BOM)
		}
		end := len(src)
		if e.EndLine < len(starts) {
			end = starts[e.EndLine]
		}
		return span{start, end, ""}, nil
	}
	return span{}, fmt.Errorf("unknown edit op %q", e.Op)
}

// lineStarts returns the byte offset of every line. A trailing newline does
// not open a new line.
func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}
