package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	"github.com/BienNg/eduinsight-sub000/internal/service"
)

type importOptions struct {
	group             string
	level             string
	mode              string
	language          string
	sourceURL         string
	sheetIndex        int
	allowMissingTimes bool
	yes               bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>...",
		Short: "Import one or more spreadsheets, strictly one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(root, true)
			if err != nil {
				return err
			}
			defer e.Close()
			return runImport(cmd.Context(), e, opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.group, "group", "", "course group, e.g. G12 (default: parsed from filename)")
	cmd.Flags().StringVar(&opts.level, "level", "", "course level, e.g. A1.1")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Online or Offline")
	cmd.Flags().StringVar(&opts.language, "language", "", "course language")
	cmd.Flags().StringVar(&opts.sourceURL, "source-url", "", "link to the source spreadsheet")
	cmd.Flags().IntVar(&opts.sheetIndex, "sheet-index", 0, "zero-based worksheet index")
	cmd.Flags().BoolVar(&opts.allowMissingTimes, "allow-missing-times", false, "continue with blank times when only time columns fail validation")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "answer yes to every missing-times prompt")

	return cmd
}

func (o importOptions) request(path string, data []byte) *importer.Request {
	req := &importer.Request{
		Filename:          filepath.Base(path),
		Data:              data,
		SheetIndex:        o.sheetIndex,
		AllowMissingTimes: o.allowMissingTimes,
	}
	if o.group != "" || o.level != "" || o.mode != "" {
		req.Metadata = &importer.CourseMetadata{
			GroupName:  o.group,
			Level:      o.level,
			Mode:       o.mode,
			Language:   o.language,
			SourceURL:  o.sourceURL,
			SheetIndex: o.sheetIndex,
		}
	}
	return req
}

// runImport 把文件依次送入导入队列，遇到待决策任务时在终端询问
func runImport(ctx context.Context, e *env, opts importOptions, files []string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repo := repository.NewRepository(e.store)
	queue := service.NewImportService(e.pipeline(repo), e.locker(), e.logger.Named("queue"))
	if err := queue.Start(ctx); err != nil {
		return err
	}

	jobs := make([]*service.ImportJob, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		job, err := queue.Enqueue(ctx, opts.request(path, data))
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", path, err)
		}
		jobs = append(jobs, job)
	}

	prompt := bufio.NewReader(in)
	failed := 0
	for _, job := range jobs {
		final, err := awaitJob(ctx, queue, job.ID, opts.yes, prompt, out)
		if err != nil {
			return err
		}
		printJob(out, final)
		if final.Status != service.JobCompleted {
			failed++
		}
	}

	e.logger.Info("导入结束", zap.Int("files", len(jobs)), zap.Int("failed", failed))
	if failed > 0 {
		return errImportFailed
	}
	return nil
}

// awaitJob 等待任务结束；期间的每次待决策都交给终端确认
func awaitJob(ctx context.Context, queue service.ImportService, id string, yes bool, prompt *bufio.Reader, out io.Writer) (*service.ImportJob, error) {
	for {
		job, err := queue.Wait(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if job.Status != service.JobAwaitingDecision {
			continue
		}

		confirmed := yes
		if !yes {
			fmt.Fprintf(out, "\n%s: only time columns failed validation:\n", job.Filename)
			if job.Validation != nil {
				for _, msg := range job.Validation.Messages() {
					fmt.Fprintf(out, "  - %s\n", msg)
				}
			}
			fmt.Fprint(out, "Continue with blank times? [y/N] ")
			answer, _ := prompt.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			confirmed = answer == "y" || answer == "yes"
		}
		if _, err := queue.Resume(confirmed); err != nil {
			return nil, err
		}
	}
}

func printJob(out io.Writer, job *service.ImportJob) {
	switch job.Status {
	case service.JobCompleted:
		r := job.Result
		action := "merged into"
		if r.Created {
			action = "created"
		}
		fmt.Fprintf(out, "✓ %s: %s %q (%d new, %d updated sessions, %d students, %s)\n",
			job.Filename, action, r.CourseName, r.SessionsCreated, r.SessionsUpdated, r.StudentCount, r.Status)
	case service.JobCancelled:
		fmt.Fprintf(out, "– %s: cancelled\n", job.Filename)
	default:
		fmt.Fprintf(out, "✗ %s: %s\n", job.Filename, job.Error)
	}
}
