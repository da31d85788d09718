package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sofficeRestart is the exit code LibreOffice uses when it had to
// initialise a fresh profile and wants to be started again.
const sofficeRestart = 81

// WordInput is a document to convert. FileName, without extension, names
// the produced PDF so inputs sharing a base name do not collide.
type WordInput struct {
	InputPath string
	FileName  string
}

// Word converts Word documents to PDF with headless LibreOffice.
type Word struct {
	SofficePath string
	Tool        *Tool
}

// IsWord reports whether path looks like a Word document.
func IsWord(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".doc", ".docx", ".odt", ".rtf":
		return true
	}
	return false
}

// Convert returns one path per input, in order. Non-Word inputs are
// returned unchanged and empty paths stay empty.
func (w *Word) Convert(ctx context.Context, inputs []WordInput, targetDir string) ([]string, error) {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.InputPath == "" {
			out = append(out, "")
			continue
		}
		if _, err := os.Stat(in.InputPath); err != nil {
			return out, fmt.Errorf("word input: %w", err)
		}
		if !IsWord(in.InputPath) {
			out = append(out, in.InputPath)
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pdf, err := w.convertOne(ctx, in, targetDir)
		if err != nil {
			return out, err
		}
		out = append(out, pdf)
	}
	return out, nil
}

func (w *Word) convertOne(ctx context.Context, in WordInput, targetDir string) (string, error) {
	scratch, err := os.MkdirTemp("", "docmark-soffice-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	// A private profile lets several conversions run at once.
	profile := "file://" + filepath.ToSlash(filepath.Join(scratch, "profile"))
	argv := []string{
		w.soffice(),
		"-env:UserInstallation=" + profile,
		"--headless", "--norestore",
		"--convert-to", "pdf",
		"--outdir", scratch,
		in.InputPath,
	}
	if err := w.tool().Run(ctx, argv); err != nil {
		return "", fmt.Errorf("convert %s: %w", filepath.Base(in.InputPath), err)
	}

	base := strings.TrimSuffix(filepath.Base(in.InputPath), filepath.Ext(in.InputPath))
	produced := filepath.Join(scratch, base+".pdf")
	name := in.FileName
	if name == "" {
		name = base
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", targetDir, err)
	}
	target := filepath.Join(targetDir, name+".pdf")
	if err := moveFile(produced, target); err != nil {
		return "", fmt.Errorf("collect converted %s: %w", filepath.Base(in.InputPath), err)
	}
	return target, nil
}

func (w *Word) soffice() string {
	if w.SofficePath == "" {
		return "soffice"
	}
	return w.SofficePath
}

// tool returns a copy so concurrent jobs never write to the shared Tool.
func (w *Word) tool() *Tool {
	var t Tool
	if w.Tool != nil {
		t = *w.Tool
	}
	if t.Retryable == nil {
		t.Retryable = func(code int) bool { return code == sofficeRestart }
	}
	return &t
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
