// Package orchestrator drives enhance jobs through the staged pipeline and
// feeds the validator the stage-correct baseline/candidate pair:
//
//	stage1A validates against the original upload;
//	stage1B validates against the stage1A output (declutter legitimately
//	removes movable items, so only 1A's fixed structure is held constant);
//	stage2 also validates against the stage1A output (staging adds
//	furniture, so 1B's stripped state is the wrong comparison).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-structural-validator/internal/config"
	"go-structural-validator/internal/logger"
	"go-structural-validator/internal/observer"
	"go-structural-validator/internal/scene"
	"go-structural-validator/internal/storage"
	"go-structural-validator/internal/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StageValidator checks one baseline/candidate pair; satisfied by
// *validator.Validator.
type StageValidator interface {
	Validate(ctx context.Context, p validator.Params) *validator.Summary
}

// Orchestrator runs a fixed pool of workers, one job per worker slot.
// Validation is CPU-bound and sequential within a job; parallelism comes
// from the pool, not from inside a job.
type Orchestrator struct {
	cfg        *config.Config
	validator  StageValidator
	enhancer   Enhancer
	classifier scene.Classifier
	source     storage.ImageSource
	queue      Queue
	store      *Store
	events     *observer.Publisher

	wg sync.WaitGroup
}

// New creates an orchestrator
func New(
	cfg *config.Config,
	v StageValidator,
	enhancer Enhancer,
	classifier scene.Classifier,
	source storage.ImageSource,
	queue Queue,
	store *Store,
	events *observer.Publisher,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		validator:  v,
		enhancer:   enhancer,
		classifier: classifier,
		source:     source,
		queue:      queue,
		store:      store,
		events:     events,
	}
}

// Submit registers a job and enqueues it
func (o *Orchestrator) Submit(ctx context.Context, originalPath string, opts Options) (*Job, error) {
	job := &Job{
		ID:           uuid.NewString(),
		OriginalPath: originalPath,
		Options:      opts,
		State:        StateQueued,
		StageOutputs: make(map[config.Stage]string),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	o.store.Put(job)

	if err := o.queue.Enqueue(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	o.events.Notify(ctx, observer.JobEvent{EventType: observer.JobQueued, JobID: job.ID, Success: true})
	return job, nil
}

// Job returns a copy of the job record
func (o *Orchestrator) Job(id string) (*Job, bool) {
	return o.store.Get(id)
}

// Start launches the worker pool. Workers exit when ctx ends.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx)
	}
}

// Wait blocks until all workers have exited
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		jobID, err := o.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		o.process(ctx, jobID)
	}
}

// process runs one job under the job-level timeout, the only interruption
// mechanism: a timed-out job is marked failed, never left half-validated.
func (o *Orchestrator) process(ctx context.Context, jobID string) {
	jctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	job, ok := o.store.Get(jobID)
	if !ok {
		logger.WithField("job_id", jobID).Error("Dequeued unknown job")
		return
	}

	if err := o.run(jctx, job); err != nil {
		reason := err.Error()
		if jctx.Err() != nil {
			reason = "job timeout exceeded"
		}
		o.store.Update(jobID, func(j *Job) {
			j.State = StateError
			j.Error = reason
		})
		o.events.Notify(ctx, observer.JobEvent{
			EventType:    observer.JobFailed,
			JobID:        jobID,
			ErrorMessage: reason,
		})
		return
	}

	o.store.Update(jobID, func(j *Job) { j.State = StateComplete })
	o.events.Notify(ctx, observer.JobEvent{EventType: observer.JobCompleted, JobID: jobID, Success: true})
}

func (o *Orchestrator) run(ctx context.Context, job *Job) error {
	o.setState(job.ID, StateSceneDetect)
	sceneType := o.detectScene(ctx, job)

	// Stage 1A: quality lift, compared against the original. A structural
	// failure here has no prior output to fall back to, so it fails the job.
	out1A, err := o.runStage(ctx, job, config.Stage1A, job.OriginalPath, job.OriginalPath, sceneType)
	if err != nil {
		return err
	}
	current := out1A

	if job.Options.Declutter {
		out1B, err := o.runStage(ctx, job, config.Stage1B, current, out1A, sceneType)
		switch {
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			// Keep the stage 1A output rather than failing the whole job
			logger.WithFields(logrus.Fields{"job_id": job.ID, "stage": config.Stage1B}).
				Warn("Declutter output rejected; keeping prior stage output")
		default:
			current = out1B
		}
	}

	if job.Options.VirtualStage {
		out2, err := o.runStage(ctx, job, config.Stage2, current, out1A, sceneType)
		switch {
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			logger.WithFields(logrus.Fields{"job_id": job.ID, "stage": config.Stage2}).
				Warn("Staging output rejected; keeping prior stage output")
		default:
			current = out2
		}
	}

	o.store.Update(job.ID, func(j *Job) {
		j.State = StateValidated
		j.FinalPath = current
	})
	return nil
}

// runStage generates a candidate from inputPath and validates it against
// baselinePath. The two differ for stage 2, where staging runs on the
// decluttered image but validation compares against the stage 1A output.
func (o *Orchestrator) runStage(
	ctx context.Context,
	job *Job,
	stage config.Stage,
	inputPath, baselinePath, sceneType string,
) (string, error) {
	o.setState(job.ID, State(stage))
	o.events.Notify(ctx, observer.JobEvent{
		EventType: observer.StageStarted,
		JobID:     job.ID,
		Stage:     string(stage),
		Success:   true,
	})

	candidatePath, err := o.enhancer.Enhance(ctx, stage, inputPath, job.Options)
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", stage, err)
	}

	summary := o.validator.Validate(ctx, validator.Params{
		Stage:         stage,
		BaselinePath:  baselinePath,
		CandidatePath: candidatePath,
		SceneType:     sceneType,
		JobID:         job.ID,
	})
	o.store.Update(job.ID, func(j *Job) {
		j.Summaries = append(j.Summaries, summary)
		j.StageOutputs[stage] = candidatePath
	})

	if summary.Risk {
		o.events.Notify(ctx, observer.JobEvent{
			EventType: observer.ValidationFlagged,
			JobID:     job.ID,
			Stage:     string(stage),
		})
	}
	if !summary.Passed {
		// Surfaced with a generic reason; the summary itself stays on the
		// job record for audit.
		return "", fmt.Errorf("%s failed structural validation", stage)
	}

	o.events.Notify(ctx, observer.JobEvent{
		EventType: observer.StageValidated,
		JobID:     job.ID,
		Stage:     string(stage),
		Success:   true,
	})
	return candidatePath, nil
}

// detectScene asks the classifier for a scene label. Classifier failure is
// advisory, never fatal.
func (o *Orchestrator) detectScene(ctx context.Context, job *Job) string {
	img, err := o.source.Fetch(ctx, job.OriginalPath)
	if err != nil {
		logger.WithError(err).WithField("job_id", job.ID).Warn("Scene detection skipped: original unreadable")
		return ""
	}
	classification, err := o.classifier.Classify(ctx, img)
	if err != nil {
		logger.WithError(err).WithField("job_id", job.ID).Warn("Scene classification failed")
		return ""
	}
	o.store.Update(job.ID, func(j *Job) { j.SceneType = classification.Label })
	return classification.Label
}

func (o *Orchestrator) setState(jobID string, state State) {
	o.store.Update(jobID, func(j *Job) { j.State = state })
}
