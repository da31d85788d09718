package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/catalog"
	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/outline"
	"github.com/dgallion1/docmark/internal/outlinefile"
	"github.com/dgallion1/docmark/internal/progress"
)

func bookmarksCommand() *cli.Command {
	return &cli.Command{
		Name:      "bookmarks",
		Usage:     "print the bookmarks of a PDF with their page ranges",
		ArgsUsage: "<file.pdf>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yaml", Usage: "print as YAML, importable with apply"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c)
			}
			e := newEnv(c)
			list, count, err := document.ReadBookmarks(c.Context, e.eng, c.Args().First())
			if err != nil {
				return err
			}
			if c.Bool("yaml") {
				return outlinefile.WriteYAML(c.App.Writer, list)
			}
			printBookmarks(c.App.Writer, list, count)
			return nil
		},
	}
}

// usageError prints the command help and fails the run.
func usageError(c *cli.Context) error {
	_ = cli.ShowSubcommandHelp(c)
	return fmt.Errorf("%s: wrong number of arguments", c.Command.Name)
}

func printBookmarks(w io.Writer, list []bookmark.Bookmark, pageCount int) {
	fmt.Fprintf(w, "%d pages, %d bookmarks\n", pageCount, len(list))
	for i, b := range list {
		fmt.Fprintf(w, "%4d  %s\n", i+1, b)
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "concatenate documents under one bookmark each",
		ArgsUsage: "<input[:title[:level]]>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "merged PDF"},
			&cli.BoolFlag{Name: "page-numbers", Usage: "stamp page numbers on the result"},
			&cli.StringFlag{Name: "soffice", Usage: "LibreOffice binary for Word inputs", EnvVars: []string{"SOFFICE_PATH"}},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usageError(c)
			}
			inputs := make([]document.MergeInput, 0, c.NArg())
			for _, arg := range c.Args().Slice() {
				in, err := parseMergeInput(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, in)
			}
			e := newEnv(c)
			res, err := e.merger(c.String("soffice")).Merge(c.Context, document.MergeOptions{
				Inputs:         inputs,
				Output:         c.String("output"),
				AddPageNumbers: c.Bool("page-numbers") || e.cfg.AddPageNumbers,
			}, reporter(c))
			if err != nil {
				return err
			}
			printOutputs(c.App.Writer, res)
			return nil
		},
	}
}

// parseMergeInput splits "path[:title[:level]]".
func parseMergeInput(arg string) (document.MergeInput, error) {
	parts := strings.SplitN(arg, ":", 3)
	in := document.MergeInput{Path: parts[0]}
	if in.Path == "" {
		return in, fmt.Errorf("merge input %q: empty path", arg)
	}
	if len(parts) > 1 {
		in.Title = parts[1]
	}
	if len(parts) > 2 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return in, fmt.Errorf("merge input %q: level must be a positive number", arg)
		}
		in.Level = n
	}
	return in, nil
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "copy bookmarked page ranges into new documents",
		ArgsUsage: "<file.pdf>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dest", Aliases: []string{"d"}, Required: true, Usage: "output directory, or a .pdf file with --single"},
			&cli.BoolFlag{Name: "single", Usage: "write all selected ranges into one file"},
			&cli.StringSliceFlag{Name: "select", Aliases: []string{"s"}, Usage: `bookmark positions per input, e.g. "1,3-5"; default all`},
			&cli.StringFlag{Name: "template", Usage: "file name template using {bookmark}, {file} and {number}"},
			&cli.BoolFlag{Name: "group", Usage: "add a bookmark per source file (--single); default when a source contributes several bookmarks"},
			&cli.BoolFlag{Name: "keep-container", Usage: "keep a bookmark's own entry when it shares the first page with its first child"},
			&cli.BoolFlag{Name: "pdfa", Usage: "convert outputs to PDF/A"},
			&cli.StringFlag{Name: "pdfa-command", Usage: "PDF/A converter command using {in} and {out}", EnvVars: []string{"PDFA_COMMAND"}},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return usageError(c)
			}
			e := newEnv(c)
			selects := c.StringSlice("select")
			single := c.Bool("single")

			var files []document.FileSelection
			for i, path := range c.Args().Slice() {
				sel := ""
				if i < len(selects) {
					sel = selects[i]
				}
				marks, err := selectBookmarks(c, e, path, sel, single)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				files = append(files, document.FileSelection{Path: path, Bookmarks: marks})
			}

			dest := document.Directory(c.String("dest"))
			if single {
				dest = document.SingleFile(c.String("dest"))
			}
			group := document.ShouldGroup(files)
			if c.IsSet("group") {
				group = c.Bool("group")
			}

			res, err := e.extractor(c.String("pdfa-command")).Extract(c.Context, document.ExtractOptions{
				Files:              files,
				Destination:        dest,
				PdfA:               c.Bool("pdfa"),
				GroupByFiles:       group,
				NameTemplate:       c.String("template"),
				DropRedundantFirst: !c.Bool("keep-container"),
			}, reporter(c))
			if err != nil {
				return err
			}
			printOutputs(c.App.Writer, res)
			return nil
		},
	}
}

func selectBookmarks(c *cli.Context, e *env, path, sel string, single bool) ([]bookmark.Bookmark, error) {
	count, err := e.eng.PageCount(c.Context, path)
	if err != nil {
		return nil, err
	}
	roots, err := e.eng.Outline(c.Context, path)
	if err != nil {
		return nil, err
	}
	cat := catalog.FromSource(path, roots, count)
	if sel == "" || sel == "all" {
		cat.SelectAll()
	} else {
		idx, err := catalog.ParseIndexes(sel, len(cat.Entries))
		if err != nil {
			return nil, err
		}
		cat.SelectIndexes(idx)
	}
	marks := cat.Extractable(!single)
	if len(marks) == 0 {
		return nil, errors.New("no bookmarks selected")
	}
	return marks, nil
}

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "replace the outline of a PDF with one read from an outline file",
		ArgsUsage: "<in.pdf> <out.pdf>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "outline", Required: true, Usage: "outline file (.md, .txt, .csv, .html, .yaml, .docx)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageError(c)
			}
			outlinePath := c.String("outline")
			p, err := outlinefile.ForFile(outlinePath)
			if err != nil {
				return err
			}
			f, err := os.Open(outlinePath)
			if err != nil {
				return err
			}
			list, err := p.Parse(f, outlinePath)
			f.Close()
			if err != nil {
				return fmt.Errorf("parse %s: %w", outlinePath, err)
			}
			list = outlinefile.Resolved(list)
			if len(list) == 0 {
				return fmt.Errorf("%s: no entries with page numbers", outlinePath)
			}

			e := newEnv(c)
			in, out := c.Args().Get(0), c.Args().Get(1)
			if err := document.ApplyOutline(c.Context, e.eng, in, out, list); err != nil {
				return err
			}
			count, err := e.eng.PageCount(c.Context, out)
			if err != nil {
				return err
			}
			printBookmarks(c.App.Writer, outline.Infer(list, count), count)
			return nil
		},
	}
}

// reporter prints progress to stderr unless --quiet is set.
func reporter(c *cli.Context) progress.Sink {
	if c.Bool("quiet") {
		return progress.Discard
	}
	return func(r progress.Report) {
		line := fmt.Sprintf("[%3d%%] %s", r.Percentage, r.Phase)
		if r.Item != "" {
			line += " " + r.Item
		}
		fmt.Fprintln(c.App.ErrWriter, line)
	}
}

func printOutputs(w io.Writer, res document.Result) {
	for _, p := range res.Outputs {
		fmt.Fprintln(w, p)
	}
	if res.PdfAFailed {
		fmt.Fprintln(w, "warning: PDF/A conversion failed, files were written unconverted")
	}
}
