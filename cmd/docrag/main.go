// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/extract"
	"github.com/poiesic/docrag/fault"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "docrag",
		Usage:     "Upload documents, index them and ask questions about them",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with settings",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "upload",
				Usage:  "Store files in object storage and print their locators",
				Action: uploadCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "File to upload (pdf, png, jpeg, tiff); repeatable",
						Required: true,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Index the OCR result of an uploaded file in the background",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "locator",
						Usage:    "Locator returned by upload",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for the task to finish and print its status",
					},
				},
			},
			{
				Name:   "import-ocr",
				Usage:  "Index an OCR result file directly",
				Action: importOCRCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "OCR result JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source name (default: file base name)",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Remove chunks already indexed for the source first",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Print the status of an ingestion task",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task",
						Aliases:  []string{"t"},
						Usage:    "Task id returned by ingest",
						Required: true,
					},
				},
			},
			{
				Name:   "tasks",
				Usage:  "List every ingestion task",
				Action: tasksCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pending",
						Usage: "Only list tasks that have not finished",
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Answer a question from one ingested source",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Source to answer from",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question to answer",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of chunks used as context (default: LLM_VECTOR_SEARCH_TOP_K)",
					},
				},
			},
			{
				Name:   "extract",
				Usage:  "Answer a question about an uploaded file",
				Action: extractCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "locator",
						Usage:    "Locator returned by upload",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question to answer",
						Required: true,
					},
				},
			},
		},
	}
}

// withService loads the configuration, opens a Service for the duration of
// fn and reports fn's error.
func withService(c *cli.Context, fn func(ctx context.Context, svc *docrag.Service) error) error {
	cfg, err := config.Load(c.String("env"))
	if err != nil {
		return err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := docrag.NewService(ctx, cfg)
	if err != nil {
		return reportError(c, fault.Describe(err, cfg.Debug))
	}
	defer svc.Close()

	if err := fn(ctx, svc); err != nil {
		return reportError(c, svc.Describe(err))
	}
	return nil
}

func uploadCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		var uploads []docrag.Upload
		for _, path := range c.StringSlice("file") {
			f, err := os.Open(path)
			if err != nil {
				return fault.NewUnexpected(err)
			}
			defer f.Close()

			size := int64(-1)
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}
			uploads = append(uploads, docrag.Upload{
				Filename:    filepath.Base(path),
				ContentType: contentType(path),
				Size:        size,
				Body:        f,
			})
		}

		objects, err := svc.Upload(ctx, uploads...)
		if err != nil {
			return err
		}
		return printJSON(c, objects)
	})
}

func ingestCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		id, err := svc.SubmitIngestion(ctx, c.String("locator"))
		if err != nil {
			return err
		}
		if c.Bool("wait") {
			svc.WaitTasks()
		}
		task, err := svc.TaskStatus(ctx, id)
		if err != nil {
			return fault.NewUnexpected(err)
		}
		return printJSON(c, taskView(task))
	})
}

func importOCRCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		doc, err := extract.LoadOCRResult(c.String("file"), c.String("source"))
		if err != nil {
			return fault.Unsupported(err.Error())
		}
		if !c.Bool("replace") {
			if err := svc.Ingest(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "ingested %s\n", doc.Source)
			return nil
		}
		removed, err := svc.Replace(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "ingested %s (replaced %d chunks)\n", doc.Source, removed)
		return nil
	})
}

func statusCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		task, err := svc.TaskStatus(ctx, c.String("task"))
		if err != nil {
			return fault.NewUnexpected(err)
		}
		return printJSON(c, taskView(task))
	})
}

func tasksCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		records, err := svc.ListTasks(ctx)
		if err != nil {
			return fault.NewUnexpected(err)
		}
		views := make([]taskStatus, 0, len(records))
		for _, task := range records {
			if c.Bool("pending") && task.Status.Terminal() {
				continue
			}
			views = append(views, taskView(task))
		}
		return printJSON(c, views)
	})
}

func askCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		if c.IsSet("top-k") && c.Int("top-k") <= 0 {
			return fault.Unsupported("top-k must be positive")
		}
		answer, err := svc.Answer(ctx, c.String("question"), c.String("source"), c.Int("top-k"))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, answer)
		return nil
	})
}

func extractCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *docrag.Service) error {
		result, err := svc.Extract(ctx, c.String("locator"), c.String("question"))
		if err != nil {
			return err
		}
		return printJSON(c, result)
	})
}

type taskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"task_status"`
	Done   bool   `json:"done"`
	Kind   string `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func taskView(task *core.TaskRecord) taskStatus {
	return taskStatus{
		TaskID: task.Id,
		Status: string(task.Status),
		Done:   task.Status.Terminal(),
		Kind:   task.FaultKind,
		Detail: task.Detail,
	}
}

// contentType guesses the MIME type of path from its extension.
func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".tif", ".tiff":
		return "image/tiff"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// errReported marks an error whose report was already written.
var errReported = errors.New("command failed")

func reportError(c *cli.Context, report fault.Report) error {
	enc := json.NewEncoder(c.App.ErrWriter)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(report)
	slog.Debug("command failed", "kind", report.Kind, "code", report.Code)
	return errReported
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
