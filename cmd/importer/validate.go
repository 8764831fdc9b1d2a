package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var sheetIndex int

	cmd := &cobra.Command{
		Use:   "validate <file.xlsx>...",
		Short: "Check spreadsheets without writing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(root, false)
			if err != nil {
				return err
			}
			defer e.Close()

			// 校验不访问存储
			p := e.pipeline(repository.NewRepository(nil))
			invalid := 0
			for _, path := range args {
				ok, err := validateFile(p, path, sheetIndex, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files failed validation", invalid, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sheetIndex, "sheet-index", 0, "zero-based worksheet index")
	return cmd
}

func validateFile(p *importer.Pipeline, path string, sheetIndex int, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	res, err := p.Validate(&importer.Request{Filename: name, Data: data, SheetIndex: sheetIndex})
	if err != nil {
		fmt.Fprintf(out, "✗ %s: %v\n", name, err)
		return false, nil
	}
	if res.Valid() {
		fmt.Fprintf(out, "✓ %s\n", name)
		return true, nil
	}

	hint := ""
	if res.HasOnlyTimeErrors() {
		hint = " (importable with --allow-missing-times)"
	}
	fmt.Fprintf(out, "✗ %s%s\n", name, hint)
	for _, msg := range res.Messages() {
		fmt.Fprintf(out, "  - %s\n", msg)
	}
	return false, nil
}
