// koala compiles Koala source into a KLC image and runs it on the frame-
// chain bytecode virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/fangguanya/koala-lang/atom"
	"github.com/fangguanya/koala-lang/compiler"
	"github.com/fangguanya/koala-lang/image"
	"github.com/fangguanya/koala-lang/lexer"
	"github.com/fangguanya/koala-lang/parser"
	"github.com/fangguanya/koala-lang/repl"
	"github.com/fangguanya/koala-lang/vm"
)

const version = "0.1.0"

// koalaPathEnv names the environment variable holding the module search
// path (colon-separated directories whose .klc images are all registered
// with the VM before the program runs, so LOADM can resolve imports from
// them).
const koalaPathEnv = "KOALA_PATH"

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Koala Compiler v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    Koala compiles .koala source into a KLC bytecode image and runs it on
    the frame-chain virtual machine. Without any flags, it starts an
    interactive REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Compile and run a Koala source file
    -e, --eval <code>       Compile and run a Koala snippet (no result is printed)
    -o, --outdir <path>     Write the compiled .klc image to this directory instead of running it
    -d, --debug             Enable debug mode with more verbose output
    -v, --version           Show version information
    -h, --help              Show this help message

ENVIRONMENT:
    KOALA_PATH               Colon-separated directories searched for imported modules' .klc images

EXAMPLES:
    # Start interactive REPL
    %s

    # Compile and run a script
    %s -f script.koala

    # Evaluate an expression
    %s -e "1 + 2"

    # Compile to an image without running it
    %s -f script.koala -o build/

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Compile and run a Koala source file")
	evalFlag := flag.String("eval", "", "Compile and run a Koala snippet (no result is printed)")
	outdirFlag := flag.String("outdir", "", "Write the compiled .klc image to this directory instead of running it")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose output")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Compile and run a Koala source file")
	flag.StringVar(evalFlag, "e", "", "Compile and run a Koala snippet (no result is printed)")
	flag.StringVar(outdirFlag, "o", "", "Write the compiled .klc image to this directory instead of running it")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose output")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("Koala Compiler v%s\n", version)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *outdirFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		evaluateExpression(*evalFlag, *debugFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	fmt.Println("Hello", username+",", "welcome to the koala compiler!")
	fmt.Println("Feel free to type in Koala code. (Ctrl+D or Ctrl+C to exit)")

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// modulePath derives a package path for a source file: its base name
// without extension, matching the name the compiler's own import
// resolution expects to find under a KOALA_PATH directory.
func modulePath(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// executeFile compiles filename and either writes the resulting image to
// outdir or runs it immediately.
func executeFile(filename, outdir string, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}
	if debug {
		fmt.Printf("Compiling file: %s\n", absolute)
	}

	//nolint:gosec // the path comes from a trusted CLI flag, not untrusted user input
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	img, ok := compileSource(string(content), modulePath(filename), debug)
	if !ok {
		os.Exit(1)
	}

	if outdir != "" {
		writeImage(img, outdir)
		return
	}

	runImage(img, debug)
}

// evaluateExpression compiles and runs expr as a standalone module named
// "main".
func evaluateExpression(expr string, debug bool) {
	img, ok := compileSource(expr, "main", debug)
	if !ok {
		os.Exit(1)
	}
	runImage(img, debug)
}

// compileSource runs the lex/parse/compile pipeline, printing parser and
// compiler errors to stderr on failure.
func compileSource(src, pkgName string, debug bool) (*image.Image, bool) {
	l := lexer.New(src)
	p := parser.New(l)
	program := p.ParseProgram()

	if len(p.Errors()) != 0 {
		printErrors("Parser errors:", p.Errors())
		return nil, false
	}

	img, errs := compiler.Compile(pkgName, program)
	if len(errs) != 0 {
		printErrors("Compilation errors:", errs)
		return nil, false
	}
	if debug {
		fmt.Printf("DEBUG: compiled module %q, %d constants interned\n", img.PkgName, img.Table.Size(atom.KindConst))
	}
	return img, true
}

// writeImage serializes img to <outdir>/<pkgname>.klc.
func writeImage(img *image.Image, outdir string) {
	data, err := img.Write()
	if err != nil {
		fmt.Printf("Error encoding image: %s\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		fmt.Printf("Error creating output directory: %s\n", err)
		os.Exit(1)
	}
	path := filepath.Join(outdir, img.PkgName+".klc")
	//nolint:gosec // image files are not secrets
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Error writing image: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

// runImage loads img into a fresh interpreter State and runs its __init__.
func runImage(img *image.Image, debug bool) {
	state := vm.NewState()
	for _, dir := range koalaPathDirs() {
		loadModuleDir(state, dir)
	}
	state.AddImage(img)

	mod, err := state.LoadModule(img.PkgName)
	if err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}
	if debug {
		fmt.Printf("DEBUG: loaded module %q (%d funcs, %d classes)\n", mod.Path, len(mod.Funcs), len(mod.Classes))
	}

	if fn, ok := mod.Funcs["main"]; ok {
		r := vm.NewRoutine(state)
		if _, err := r.Call(fn, mod, nil); err != nil {
			fmt.Printf("VM error: %s\n", err)
			os.Exit(1)
		}
		if err := state.DrainScheduled(); err != nil {
			fmt.Printf("VM error: %s\n", err)
			os.Exit(1)
		}
	}
}

// koalaPathDirs splits KOALA_PATH into its constituent directories.
func koalaPathDirs() []string {
	v := os.Getenv(koalaPathEnv)
	if v == "" {
		return nil
	}
	return strings.Split(v, ":")
}

// loadModuleDir registers every .klc image found directly under dir so
// LOADM can resolve imports lazily without a prior explicit load.
func loadModuleDir(state *vm.State, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".klc" {
			continue
		}
		//nolint:gosec // KOALA_PATH is operator-controlled, not untrusted input
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		img, err := image.Read(data)
		if err != nil {
			continue
		}
		state.AddImage(img)
	}
}

// printErrors prints a labeled list of diagnostic messages to stderr.
func printErrors(label string, errs []string) {
	_, _ = fmt.Fprintln(os.Stderr, label)
	for _, msg := range errs {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}
