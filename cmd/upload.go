package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mediactl/internal/formatter"
	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/services"
	"github.com/desertthunder/mediactl/internal/shared"
	"github.com/desertthunder/mediactl/internal/ui"
	"github.com/desertthunder/mediactl/internal/upload"
)

// uploadJob is what every file in one upload command shares.
type uploadJob struct {
	opts    upload.Options
	itemID  string
	edits   models.Fields
	publish bool
}

// uploadResult is the outcome of one file.
type uploadResult struct {
	Source string
	Phase  string
	ItemID string
	Err    error
}

// Upload sends each argument through its own upload session. Sessions run on a
// bounded worker pool and start no faster than upload.requests_per_second.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return fmt.Errorf("%w: at least one file or blob URL is required", shared.ErrMissingArgument)
	}

	job, err := r.uploadJob(ctx, cmd)
	if err != nil {
		return err
	}
	if job.itemID != "" && len(sources) > 1 {
		return fmt.Errorf("%w: --item takes a single file", shared.ErrInvalidArgument)
	}

	if cmd.Bool("tui") {
		if len(sources) > 1 {
			return fmt.Errorf("%w: --tui takes a single file", shared.ErrInvalidArgument)
		}
		return r.uploadInteractive(ctx, cmd, sources[0], job)
	}

	workers := cmd.Int("workers")
	if workers <= 0 {
		workers = max(r.config.Upload.Workers, 1)
	}
	limit := rate.Inf
	if rps := r.config.Upload.RequestsPerSecond; rps > 0 {
		limit = rate.Limit(rps)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]uploadResult, len(sources))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, source := range sources {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				results[i] = uploadResult{Source: source, Phase: upload.PhaseEmpty.String(), Err: err}
				return nil
			}
			s, err := r.uploadOne(ctx, source, job)
			results[i] = uploadResult{Source: source, Phase: s.Phase().String(), ItemID: s.ItemID, Err: err}
			return nil
		})
	}
	g.Wait()

	return r.reportUploads(results)
}

func (r *Runner) uploadJob(ctx context.Context, cmd *cli.Command) (*uploadJob, error) {
	method := strings.ToUpper(cmd.String("method"))
	if method == "" {
		method = strings.ToUpper(r.config.Upload.TransferMethod)
	}
	switch method {
	case "", services.TransferPOST, services.TransferPUT:
	default:
		return nil, fmt.Errorf("%w: --method must be POST or PUT, got %q", shared.ErrInvalidFlag, method)
	}

	job := &uploadJob{itemID: cmd.String("item"), publish: cmd.Bool("publish"), edits: models.Fields{}}
	if cmd.IsSet("title") {
		job.edits["title"] = cmd.String("title")
	}
	if cmd.IsSet("description") {
		job.edits["description"] = cmd.String("description")
	}

	var channelID string
	if job.itemID == "" {
		id, err := r.channelID(ctx, cmd.String("channel"))
		if err != nil {
			return nil, err
		}
		channelID = id
	}

	policy := upload.PolicyFromConfig(r.config.Upload)
	policy.Defaults = models.Merge(policy.Defaults, job.edits)

	job.opts = upload.Options{
		ChannelID:      channelID,
		TransferMethod: method,
		Policy:         policy,
		Logger:         r.logger,
		Metrics:        r.metrics,
	}

	if r.config.Upload.JournalEnabled {
		repo, err := r.uploadRepository()
		if err != nil {
			r.logger.Warn("upload journal unavailable", "error", err)
		} else {
			job.opts.Journal = repo
		}
	}
	return job, nil
}

// startUpload opens source and selects it in a new orchestrator, attaching the
// existing item first when one is given.
func (r *Runner) startUpload(ctx context.Context, source string, job *uploadJob) (*upload.Orchestrator, error) {
	file, err := upload.OpenSource(ctx, source)
	if err != nil {
		return nil, err
	}

	orch := upload.NewOrchestrator(ctx, r.client, job.opts)
	if job.itemID != "" {
		if err := orch.Attach(ctx, job.itemID); err != nil {
			orch.Close()
			return nil, err
		}
	}

	orch.Select(file)
	if len(job.edits) > 0 {
		if err := orch.Edit(job.edits); err != nil {
			orch.Close()
			return nil, err
		}
	}
	return orch, nil
}

func (r *Runner) uploadOne(ctx context.Context, source string, job *uploadJob) (upload.Session, error) {
	orch, err := r.startUpload(ctx, source, job)
	if err != nil {
		return upload.Session{}, err
	}
	defer orch.Close()

	s, err := orch.Await(ctx, func(s upload.Session) bool {
		return s.Transfer != upload.TransferPending || s.Phase() == upload.PhaseFailed
	})
	if err != nil {
		return s, err
	}
	if s.Transfer != upload.TransferSucceeded || !job.publish {
		return s, s.Err()
	}

	if err := orch.Publish(); err != nil {
		return s, err
	}
	s, err = orch.Await(ctx, func(s upload.Session) bool {
		return s.Publish == upload.PublishSucceeded || s.Publish == upload.PublishFailed
	})
	if err != nil {
		return s, err
	}
	return s, s.Err()
}

func (r *Runner) uploadInteractive(ctx context.Context, cmd *cli.Command, source string, job *uploadJob) error {
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	job.opts.Logger = fileLogger

	orch, err := r.startUpload(ctx, source, job)
	if err != nil {
		return err
	}
	defer orch.Close()

	model := ui.NewUploadModel(orch)
	if err := ui.Run(ctx, model); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return orch.Session().Err()
}

func (r *Runner) reportUploads(results []uploadResult) error {
	var errs []error
	for _, res := range results {
		item := res.ItemID
		if item == "" {
			item = "-"
		}
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Source, res.Err))
			r.writePlain("✗ %s\t%s\t%s\t%v\n", res.Source, item, res.Phase, res.Err)
			continue
		}
		r.writePlain("✓ %s\t%s\t%s\n", res.Source, item, res.Phase)
	}
	return errors.Join(errs...)
}

// UploadsHistory prints the local upload journal.
func (r *Runner) UploadsHistory(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.uploadRepository()
	if err != nil {
		return err
	}

	records, err := repo.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.render(cmd, records, func(formatter.Format) ([]byte, error) {
		var b strings.Builder
		for _, rec := range records {
			fmt.Fprintf(&b, "%d\t%s\t%s\t%s\t%.0f%%", rec.Sequence, rec.UpdatedAt.Format("2006-01-02 15:04"), rec.FileName, rec.Phase, rec.Progress*100)
			if rec.ItemID != "" {
				fmt.Fprintf(&b, "\t%s", rec.ItemID)
			}
			if rec.Error != "" {
				fmt.Fprintf(&b, "\t%s", rec.Error)
			}
			b.WriteString("\n")
		}
		return []byte(b.String()), nil
	})
}
