// Package pipeline implements the fetch, extract, and index stages of the
// ingestion pipeline and the controller that sequences them.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Canonical stage names, in execution order.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageIndex   = "index"
)

// Stage is one named unit of pipeline work. Run reports whether the stage
// produced anything new for downstream stages.
type Stage struct {
	Name string
	Run  func(ctx context.Context) (bool, error)
}

// Controller executes stages strictly in order. When an upstream stage
// (fetch or extract) reports no new work and more than one stage was
// requested, the remaining stages are skipped: there is nothing for them to
// process. The terminal index stage gates nothing. Any stage error aborts
// the run and propagates to the caller.
type Controller struct {
	stages []Stage
}

// NewController builds a controller over the given stages.
func NewController(stages []Stage) *Controller {
	return &Controller{stages: stages}
}

// gating reports whether a stage's "no new work" result short-circuits the
// rest of the sequence.
func gating(name string) bool {
	return name == StageFetch || name == StageExtract
}

// Run executes the requested stages. Per-stage and total wall-clock times
// are logged for operational visibility only; they play no part in control
// flow.
func (c *Controller) Run(ctx context.Context) error {
	names := make([]string, len(c.stages))
	for i, st := range c.stages {
		names[i] = st.Name
	}
	log := zap.L()
	log.Info("pipeline: starting", zap.String("stages", strings.Join(names, " -> ")))
	start := time.Now()

	for _, st := range c.stages {
		stageStart := time.Now()
		log.Info("pipeline: stage starting", zap.String("stage", st.Name))

		hasWork, err := st.Run(ctx)
		elapsed := time.Since(stageStart)
		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", st.Name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			return eris.Wrapf(err, "pipeline: stage %s", st.Name)
		}

		log.Info("pipeline: stage finished",
			zap.String("stage", st.Name),
			zap.Duration("elapsed", elapsed),
			zap.Bool("has_work", hasWork),
		)

		if !hasWork && gating(st.Name) && len(c.stages) > 1 {
			log.Info("pipeline: no new data, skipping remaining stages",
				zap.String("stage", st.Name),
			)
			break
		}
	}

	log.Info("pipeline: completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}
