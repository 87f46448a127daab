// Package reader implements the MDL line reader: it turns a source file
// into a flat sequence of logical instructions, stripping comments,
// joining continuation lines, and splicing in `include`d files.
package reader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"

	"github.com/mdl-lang/mdlc/internal/mdlerr"
)

// asciiSet enforces the ASCII-only source assumption with a clear
// diagnostic instead of letting a stray multi-byte rune silently break
// lexing downstream.
var asciiSet = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0, Hi: unicode.MaxASCII, Stride: 1}},
})

// Instruction is one logical line of MDL source: a `local` assignment or
// a formula, after continuation-joining and comment stripping. `include`
// lines are replaced by the included file's instructions and are never
// returned themselves.
type Instruction struct {
	Text string
	File string
	Line int // 1-based starting line number within File
}

const includeExt = ".mdl"

// ReadProgram reads path and recursively splices in any `include`d files,
// returning the flat, ordered sequence of logical instructions.
func ReadProgram(path string) ([]Instruction, error) {
	return readFile(path, map[string]bool{})
}

func readFile(path string, ancestors map[string]bool) ([]Instruction, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, mdlerr.Wrap(mdlerr.IO, err, "resolve path %q", path)
	}
	if ancestors[abs] {
		return nil, mdlerr.New(mdlerr.Include, "cannot include self: %s", path)
	}

	lines, err := logicalLines(path)
	if err != nil {
		return nil, err
	}

	ancestors = withAncestor(ancestors, abs)
	dir := filepath.Dir(abs)

	var out []Instruction
	for _, ll := range lines {
		if inc, ok := includeTarget(ll.text); ok {
			incPath := resolveInclude(dir, inc)
			sub, err := readFile(incPath, ancestors)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, Instruction{Text: ll.text, File: path, Line: ll.line})
	}
	return out, nil
}

func withAncestor(in map[string]bool, abs string) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[abs] = true
	return out
}

func resolveInclude(dir, name string) string {
	if filepath.Ext(name) == "" {
		name += includeExt
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// isNoteLine reports whether text is a `NOTE ...` statement, an ambient
// no-op annotation that documents a program without affecting compilation.
func isNoteLine(text string) bool {
	const kw = "NOTE"
	if !strings.HasPrefix(text, kw) {
		return false
	}
	rest := text[len(kw):]
	return rest == "" || unicode.IsSpace(rune(rest[0]))
}

func includeTarget(text string) (string, bool) {
	const kw = "include"
	if !strings.HasPrefix(text, kw) {
		return "", false
	}
	rest := text[len(kw):]
	if rest == "" || !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

type logicalLine struct {
	text string
	line int
}

// logicalLines reads path and applies comment-stripping and continuation
// joining, without resolving includes (that is the caller's job, so that
// the included file's own line numbers are reported on its own errors).
//
// Comment lines (first non-blank rune is '#') are dropped outright before
// continuation is considered. A trailing backslash at the very end of a
// physical line (after trimming trailing whitespace) joins the next
// physical line into the current logical instruction. This cannot be
// confused with the exclusion-list backslash of `list ::= string+ ('\'
// string+)?`, because that backslash is always followed by at least one
// further token on the same physical line -- it is never the last
// character of the line.
func logicalLines(path string) ([]logicalLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mdlerr.Wrap(mdlerr.IO, err, "open %q", path)
	}
	defer f.Close()

	var out []logicalLine
	var pending strings.Builder
	pendingLine := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		text := strings.TrimSpace(pending.String())
		if text != "" {
			out = append(out, logicalLine{text: text, line: pendingLine})
		}
		pending.Reset()
	}
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if err := checkASCII(raw, path, lineNo); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if trimmed[0] == '#' {
			continue
		}
		if isNoteLine(trimmed) {
			continue
		}
		if pending.Len() == 0 {
			pendingLine = lineNo
		} else {
			pending.WriteByte(' ')
		}
		if strings.HasSuffix(trimmed, "\\") && !strings.HasSuffix(trimmed, "\\\\") {
			pending.WriteString(strings.TrimSpace(trimmed[:len(trimmed)-1]))
			continue
		}
		pending.WriteString(trimmed)
		flush()
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, mdlerr.Wrap(mdlerr.IO, err, "read %q", path)
	}
	return out, nil
}

func checkASCII(line, path string, lineNo int) error {
	for i, r := range line {
		if !asciiSet.Contains(r) {
			return mdlerr.New(mdlerr.IO, "%s: non-ASCII input", path).AtLine(lineNo).AtPos(i)
		}
	}
	return nil
}
