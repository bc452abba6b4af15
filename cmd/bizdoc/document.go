package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/services"
)

const stdioPath = "-"

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "in",
		Aliases: []string{"i"},
		Usage:   "document JSON file, or - for stdin",
		Value:   stdioPath,
	}
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "kind",
		Usage: "override the document kind (invoice, quote, estimate, receipt)",
	}
}

func renderCommand(deps appDeps) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "export a document JSON file to PDF",
		Flags: []cli.Flag{
			inputFlag(),
			kindFlag(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output path, a directory, or - for stdout; defaults to the suggested filename",
			},
			&cli.BoolFlag{
				Name:  "skip-validation",
				Usage: "render documents that would fail validation, e.g. drafts",
			},
			&cli.BoolFlag{
				Name:  "assign-number",
				Usage: "assign the next document number when the document has none",
			},
		},
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c, deps)
			if err != nil {
				return err
			}
			container, err := buildContainer(c, deps)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(c.Context) }()

			if c.Bool("assign-number") && strings.TrimSpace(doc.Number) == "" && container.Services.Numbering != nil {
				number, err := container.Services.Numbering.NextDocumentNumber(c.Context, doc.Kind)
				if err != nil {
					return fmt.Errorf("assign number: %w", err)
				}
				doc.Number = number
			}

			result, err := container.Services.Export.Export(c.Context, doc, services.ExportOptions{SkipValidation: c.Bool("skip-validation")})
			if err != nil {
				return err
			}
			for _, warning := range result.Warnings {
				deps.logger.Warn("export warning", zap.String("warning", warning))
			}
			return writeArtifact(c.String("out"), result, deps.stdout)
		},
	}
}

func previewCommand(deps appDeps) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "print the recomputed document and its resolved layout as JSON",
		Flags: []cli.Flag{inputFlag(), kindFlag()},
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c, deps)
			if err != nil {
				return err
			}
			container, err := buildContainer(c, deps)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(c.Context) }()

			preview, err := container.Services.Export.Preview(c.Context, doc)
			if err != nil {
				return err
			}
			return writeJSON(deps.stdout, preview)
		},
	}
}

type validateOutput struct {
	Valid      bool               `json:"valid"`
	Violations []domain.Violation `json:"violations"`
	Totals     domain.Totals      `json:"totals"`
}

func validateCommand(deps appDeps) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check a document JSON file and report field violations",
		Flags: []cli.Flag{inputFlag(), kindFlag()},
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c, deps)
			if err != nil {
				return err
			}
			container, err := buildContainer(c, deps)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close(c.Context) }()

			applied, err := container.Services.Calculator.Apply(c.Context, doc)
			if err != nil {
				return err
			}
			result := container.Services.Validator.Validate(applied)
			violations := result.Violations
			if violations == nil {
				violations = []domain.Violation{}
			}
			if err := writeJSON(deps.stdout, validateOutput{
				Valid:      result.Valid(),
				Violations: violations,
				Totals:     applied.Derived,
			}); err != nil {
				return err
			}
			if !result.Valid() {
				return cli.Exit(fmt.Sprintf("document has %d violation(s)", len(violations)), 1)
			}
			return nil
		},
	}
}

func readDocument(c *cli.Context, deps appDeps) (domain.BusinessDocument, error) {
	path := c.String("in")
	var r io.Reader = deps.stdin
	if path != "" && path != stdioPath {
		f, err := os.Open(path)
		if err != nil {
			return domain.BusinessDocument{}, fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	var doc domain.BusinessDocument
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return domain.BusinessDocument{}, fmt.Errorf("decode document: %w", err)
	}

	if raw := c.String("kind"); raw != "" {
		kind, ok := domain.ParseDocumentKind(raw)
		if !ok {
			return domain.BusinessDocument{}, fmt.Errorf("unknown document kind %q", raw)
		}
		doc.Kind = kind
	}
	if doc.Kind == "" {
		doc.Kind = domain.KindInvoice
	}
	return doc, nil
}

func writeArtifact(out string, result services.ExportResult, stdout io.Writer) error {
	if out == stdioPath {
		_, err := stdout.Write(result.PDF)
		return err
	}
	path := out
	if path == "" {
		path = result.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, result.Filename)
	}
	if err := os.WriteFile(path, result.PDF, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	_, err := fmt.Fprintf(stdout, "%s (%d page(s))\n", path, result.Pages)
	return err
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
