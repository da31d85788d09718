package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// DefaultPDFACommand converts with Ghostscript to PDF/A-2b.
const DefaultPDFACommand = "gs -dPDFA=2 -dBATCH -dNOPAUSE -dQUIET -sColorConversionStrategy=RGB " +
	"-sDEVICE=pdfwrite -dPDFACompatibilityPolicy=1 -sOutputFile={out} {in}"

// PDFA converts PDFs to PDF/A with an external command. Command is a
// shell-style template where {in} and {out} are replaced by file paths.
type PDFA struct {
	Command string
	Tool    *Tool
}

// Convert converts source, a PDF file or a directory of PDFs, into destDir
// keeping file names. ok is false when at least one file failed to convert;
// err reports problems that prevented conversion from starting.
func (p *PDFA) Convert(ctx context.Context, source, destDir string) (ok bool, err error) {
	argvTemplate, err := shlex.Split(p.command())
	if err != nil {
		return false, fmt.Errorf("parse pdf/a command: %w", err)
	}
	if len(argvTemplate) == 0 {
		return false, errors.New("pdf/a command is empty")
	}

	files, err := pdfFiles(source)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", destDir, err)
	}

	ok = true
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		final := filepath.Join(destDir, filepath.Base(in))
		out := final
		if sameFile(in, final) {
			// The converter must not read and write the same path.
			out = final + ".pdfa.tmp"
		}
		if err := p.tool().Run(ctx, expand(argvTemplate, in, out)); err != nil {
			if errors.Is(err, ErrToolMissing) || ctx.Err() != nil {
				return false, err
			}
			p.tool().logger().Error("pdf/a conversion failed", "file", filepath.Base(in), "error", err)
			os.Remove(out)
			ok = false
			continue
		}
		if out != final {
			if err := os.Rename(out, final); err != nil {
				return false, fmt.Errorf("replace %s: %w", final, err)
			}
		}
	}
	return ok, nil
}

func (p *PDFA) command() string {
	if p.Command == "" {
		return DefaultPDFACommand
	}
	return p.Command
}

func (p *PDFA) tool() *Tool {
	if p.Tool == nil {
		return &Tool{}
	}
	return p.Tool
}

func expand(argv []string, in, out string) []string {
	r := strings.NewReplacer("{in}", in, "{out}", out)
	res := make([]string, len(argv))
	for i, a := range argv {
		res[i] = r.Replace(a)
	}
	return res
}

func pdfFiles(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("pdf/a source: %w", err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(source, e.Name()))
	}
	return files, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
