package duration_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/scanhive/scanhive/pkg/duration"
)

func TestToolTimeoutsOrdered(t *testing.T) {
	if !(duration.ToolShort < duration.ToolMedium &&
		duration.ToolMedium < duration.ToolLong &&
		duration.ToolLong < duration.ToolMax) {
		t.Errorf("tool timeout tiers out of order: short=%v medium=%v long=%v max=%v",
			duration.ToolShort, duration.ToolMedium, duration.ToolLong, duration.ToolMax)
	}
}

func TestKillGraceShorterThanAnyTool(t *testing.T) {
	if duration.KillGrace >= duration.ToolShort {
		t.Errorf("kill grace %v must be far below the shortest tool budget %v",
			duration.KillGrace, duration.ToolShort)
	}
}

func TestKeepAliveBeatsRetention(t *testing.T) {
	// A keepalive slower than stream retirement would let idle SSE
	// connections die before the stream is swept.
	if duration.SSEKeepAlive >= duration.StreamRetire {
		t.Errorf("SSE keepalive %v must be below stream retention %v",
			duration.SSEKeepAlive, duration.StreamRetire)
	}
}

// TestNoHardcodedDurations walks pkg/ and cmd/ and flags struct fields
// or assignments that set Timeout/Interval/Delay values from literal
// time expressions instead of this package's constants.
func TestNoHardcodedDurations(t *testing.T) {
	fields := []string{"Timeout", "Interval", "Delay"}
	exclude := []string{"duration.go", "_test.go"}

	var violations []string
	root := projectRoot(t)

	for _, dir := range []string{"pkg", "cmd"} {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			for _, pattern := range exclude {
				if strings.Contains(path, pattern) {
					return nil
				}
			}

			fset := token.NewFileSet()
			node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
			if err != nil {
				return nil
			}

			ast.Inspect(node, func(n ast.Node) bool {
				switch expr := n.(type) {
				case *ast.KeyValueExpr:
					ident, ok := expr.Key.(*ast.Ident)
					if !ok || !matchesField(ident.Name, fields) {
						return true
					}
					if isLiteralDuration(expr.Value) {
						violations = append(violations, describe(fset, root, expr.Value, ident.Name))
					}
				case *ast.AssignStmt:
					for i, lhs := range expr.Lhs {
						sel, ok := lhs.(*ast.SelectorExpr)
						if !ok || !matchesField(sel.Sel.Name, fields) || i >= len(expr.Rhs) {
							continue
						}
						if isLiteralDuration(expr.Rhs[i]) {
							violations = append(violations, describe(fset, root, expr.Rhs[i], sel.Sel.Name))
						}
					}
				}
				return true
			})
			return nil
		})
		if err != nil {
			t.Logf("warning: error walking %s: %v", dir, err)
		}
	}

	if len(violations) > 0 {
		t.Errorf("found %d hardcoded duration values; use duration.* constants:", len(violations))
		for _, v := range violations {
			t.Errorf("  %s", v)
		}
	}
}

func matchesField(name string, fields []string) bool {
	for _, f := range fields {
		if name == f {
			return true
		}
	}
	return false
}

// isLiteralDuration matches expressions like "30 * time.Second".
func isLiteralDuration(expr ast.Expr) bool {
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	if _, ok := bin.X.(*ast.BasicLit); !ok {
		return false
	}
	sel, ok := bin.Y.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != "time" {
		return false
	}
	switch sel.Sel.Name {
	case "Second", "Minute", "Hour", "Millisecond", "Microsecond", "Nanosecond":
		return true
	}
	return false
}

func describe(fset *token.FileSet, root string, expr ast.Expr, field string) string {
	pos := fset.Position(expr.Pos())
	rel, _ := filepath.Rel(root, pos.Filename)
	return rel + ":" + strconv.Itoa(pos.Line) + ": " + field + " = <literal duration>"
}

func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}
