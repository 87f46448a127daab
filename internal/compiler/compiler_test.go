package compiler_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdl-lang/mdlc/internal/compiler"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestCompileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.mdl", strings.Join([]string{
		"local COM := 01 02 03",
		"A[c] = B[c] + 1, c in COM",
		"Total = sum(A[c], c in COM)",
		"",
	}, "\n"))

	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "A_01 = B_01 + 1\r\nA_02 = B_02 + 1\r\nA_03 = B_03 + 1\r\nTotal = 0 + A_01 + A_02 + A_03\r\n"
	if res.Output != want {
		t.Fatalf("got:\n%q\nwant:\n%q", res.Output, want)
	}
}

func TestCompileWithCalibrationAndCondition(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.mdl", "A[c] = Q[c] if Q[c] <> 0, c in 01 02\n")
	cal := writeFile(t, dir, "cal.csv", "Q_01,Q_02\nlabel1,label2\n5,0\n")

	res, err := compiler.Compile(src, compiler.Options{CalibrationPath: cal})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "A_01 = Q_01\r\n"
	if res.Output != want {
		t.Fatalf("got %q, want %q", res.Output, want)
	}
}

func TestCompileWithInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "child.mdl", "B = 2\n")
	src := writeFile(t, dir, "in.mdl", "A = 1\ninclude child\n")

	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "A = 1\r\nB = 2\r\n"
	if res.Output != want {
		t.Fatalf("got %q, want %q", res.Output, want)
	}
}

func TestCompileBuildsDependencyGraph(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.mdl", "A = B + C\nB = 1\n")

	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out, err := res.Graph.WriteGraphML()
	if err != nil {
		t.Fatalf("WriteGraphML: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `id="A"`) || !strings.Contains(s, `source="A"`) || !strings.Contains(s, `target="B"`) {
		t.Fatalf("graph did not record the A -> B dependency:\n%s", s)
	}
	if !strings.Contains(s, `<data key="equation">A = B + C</data>`) {
		t.Fatalf("node A is missing its equation attribute:\n%s", s)
	}
	if strings.Contains(s, `id="C"`) || strings.Contains(s, `target="C"`) {
		t.Fatalf("C is never defined as an equation, so it must not appear as a node or edge target:\n%s", s)
	}
}

func TestCompileParseErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "in.mdl", "A = = B\n")

	if _, err := compiler.Compile(src, compiler.Options{}); err == nil {
		t.Fatal("expected a parse error")
	}
}
