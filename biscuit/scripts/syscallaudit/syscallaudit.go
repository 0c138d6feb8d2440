// Command syscallaudit checks that every syscall number defs.SyscallNames
// knows about has a matching case in syscall.dispatch's switch statement,
// catching drift between the table and the dispatcher at commit time
// instead of at runtime -- in the spirit of the teacher's own
// biscuit/scripts/features.go, which walks a package's AST with go/ast
// looking for a specific shape, except this tool loads real type and
// syntax information for two whole packages via golang.org/x/tools/go/
// packages rather than scanning one file's tokens.
package main

import (
	"fmt"
	"go/ast"
	"os"
	"strconv"

	"golang.org/x/tools/go/packages"
)

func main() {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, "defs", "syscall")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		os.Exit(1)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}

	var defsPkg, syscallPkg *packages.Package
	for _, p := range pkgs {
		switch p.PkgPath {
		case "defs":
			defsPkg = p
		case "syscall":
			syscallPkg = p
		}
	}
	if defsPkg == nil || syscallPkg == nil {
		fmt.Fprintln(os.Stderr, "could not resolve defs and syscall packages")
		os.Exit(1)
	}

	names := syscallNames(defsPkg)
	cased := dispatchedNumbers(syscallPkg, defsPkg)

	missing := 0
	for num, name := range names {
		if !cased[num] {
			fmt.Printf("missing dispatch case for syscall %d (%s)\n", num, name)
			missing++
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
	fmt.Println("ok: every syscall in defs.SyscallNames has a dispatch case")
}

// syscallNames extracts the (number -> mnemonic) pairs out of defs'
// SyscallNames map literal by walking its AST; each key's number comes from
// defs' type information, so main only gets here once both packages have
// loaded without errors.
func syscallNames(pkg *packages.Package) map[int]string {
	out := make(map[int]string)
	for _, f := range pkg.Syntax {
		ast.Inspect(f, func(n ast.Node) bool {
			spec, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, name := range spec.Names {
				if name.Name != "SyscallNames" || i >= len(spec.Values) {
					continue
				}
				lit, ok := spec.Values[i].(*ast.CompositeLit)
				if !ok {
					continue
				}
				for _, elt := range lit.Elts {
					kv, ok := elt.(*ast.KeyValueExpr)
					if !ok {
						continue
					}
					num, okNum := constIntValue(pkg, kv.Key)
					mnemonic, okStr := constStringValue(kv.Value)
					if okNum && okStr {
						out[num] = mnemonic
					}
				}
			}
			return true
		})
	}
	return out
}

// dispatchedNumbers collects every SYS_* constant named in a case clause of
// dispatch's switch statement in the syscall package's source.
func dispatchedNumbers(syscallPkg, defsPkg *packages.Package) map[int]bool {
	out := make(map[int]bool)
	for _, f := range syscallPkg.Syntax {
		ast.Inspect(f, func(n ast.Node) bool {
			sw, ok := n.(*ast.SwitchStmt)
			if !ok {
				return true
			}
			for _, stmt := range sw.Body.List {
				cc, ok := stmt.(*ast.CaseClause)
				if !ok {
					continue
				}
				for _, expr := range cc.List {
					if num, ok := constIntValue(syscallPkg, expr); ok {
						out[num] = true
					}
				}
			}
			return true
		})
	}
	return out
}

func constIntValue(pkg *packages.Package, expr ast.Expr) (int, bool) {
	tv, ok := pkg.TypesInfo.Types[expr]
	if !ok || tv.Value == nil {
		return 0, false
	}
	n, err := strconv.Atoi(tv.Value.String())
	return n, err == nil
}

func constStringValue(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok {
		return "", false
	}
	if len(lit.Value) < 2 {
		return "", false
	}
	return lit.Value[1 : len(lit.Value)-1], true
}
