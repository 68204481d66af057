package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vps-deploy/internal/logging"
)

// NewRunner creates a runner logging step progress to logger
func NewRunner(logger *logging.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes steps in order and stops at the first failure. Steps after the
// failing one are recorded as skipped.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	r.mu.Lock()
	r.results = make([]StepResult, 0, len(steps))
	r.mu.Unlock()
	defer r.setCurrent("")

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			r.skip(steps[i:])
			return &StepError{Step: step.Name, Code: step.Code, Err: err}
		}

		r.setCurrent(step.Name)
		r.logger.Info().
			Int("step", i+1).
			Int("of", len(steps)).
			Msgf("Step %d/%d: %s", i+1, len(steps), step.Name)

		started := time.Now()
		err := step.Action(ctx)
		result := StepResult{
			Name:     step.Name,
			Status:   StatusSucceeded,
			Started:  started,
			Duration: time.Since(started),
			Err:      err,
		}
		if err != nil {
			result.Status = StatusFailed
			r.record(result)
			r.skip(steps[i+1:])
			return &StepError{Step: step.Name, Code: step.Code, Err: err}
		}

		r.record(result)
		r.logger.Success().
			Dur("duration", result.Duration).
			Msgf("%s completed", step.Name)
	}
	return nil
}

// Current returns the name of the running step, empty between runs
func (r *Runner) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Results returns a copy of the step results of the last run
func (r *Runner) Results() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// Report renders a per-step summary of the last run
func (r *Runner) Report(title string, runErr error) string {
	var result strings.Builder

	result.WriteString("=== " + strings.ToUpper(title) + " REPORT ===\n")
	for i, res := range r.Results() {
		marker := map[Status]string{
			StatusSucceeded: "[OK]     ",
			StatusFailed:    "[FAILED] ",
			StatusSkipped:   "[SKIPPED]",
		}[res.Status]
		line := fmt.Sprintf("%s %d. %s", marker, i+1, res.Name)
		if res.Status != StatusSkipped {
			line += fmt.Sprintf(" (%s)", res.Duration.Round(10*time.Millisecond))
		}
		if res.Err != nil {
			line += ": " + res.Err.Error()
		}
		result.WriteString(line + "\n")
	}

	status := "SUCCESS"
	if runErr != nil {
		status = "FAILED"
	}
	result.WriteString(fmt.Sprintf("Status: %s (exit %d)\n", status, ExitCodeOf(runErr)))
	return result.String()
}

func (r *Runner) setCurrent(name string) {
	r.mu.Lock()
	r.current = name
	r.mu.Unlock()
}

func (r *Runner) record(res StepResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *Runner) skip(steps []Step) {
	for _, s := range steps {
		r.record(StepResult{Name: s.Name, Status: StatusSkipped})
	}
}
