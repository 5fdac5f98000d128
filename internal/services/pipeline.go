package services

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"oahushop/internal/config"
	"oahushop/internal/logx"
)

// DefaultCommitMessage is used when the admin leaves the message blank.
const DefaultCommitMessage = "관리자 설정 업데이트"

// ErrPipelineDisabled is reported when publishing is switched off.
var ErrPipelineDisabled = errors.New("pipeline disabled")

// Runner executes one external command in dir and returns its combined
// output and exit code.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, int, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return out.String(), -1, err
	}
	return out.String(), 0, nil
}

// StepResult is one command of the pipeline, with its output verbatim.
type StepResult struct {
	Step     string
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (s StepResult) OK() bool {
	return s.Err == nil && s.ExitCode == 0
}

// PipelineResult is the outcome of Publish. Steps after the first failure are
// not run and not listed.
type PipelineResult struct {
	Message string
	Steps   []StepResult
}

func (r PipelineResult) OK() bool {
	if len(r.Steps) == 0 {
		return false
	}
	for _, s := range r.Steps {
		if !s.OK() {
			return false
		}
	}
	return true
}

// Pipeline publishes the working tree through git: stage all, commit, push.
type Pipeline struct {
	runner  Runner
	dir     string
	timeout time.Duration
	enabled bool
}

func NewPipeline(cfg config.PipelineConfig, runner Runner) *Pipeline {
	if runner == nil {
		runner = ExecRunner{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Pipeline{runner: runner, dir: cfg.Dir, timeout: timeout, enabled: cfg.Enabled}
}

func (p *Pipeline) Enabled() bool {
	return p.enabled
}

// Publish runs git add, commit and push in order and stops at the first failure.
func (p *Pipeline) Publish(ctx context.Context, message string) PipelineResult {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultCommitMessage
	}
	result := PipelineResult{Message: message}
	if !p.enabled {
		result.Steps = []StepResult{{Step: "publish", Err: ErrPipelineDisabled, ExitCode: -1}}
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	steps := []struct {
		name string
		args []string
	}{
		{"stage", []string{"add", "-A"}},
		{"commit", []string{"commit", "-m", message}},
		{"push", []string{"push"}},
	}
	for _, s := range steps {
		step := p.run(ctx, s.name, s.args...)
		result.Steps = append(result.Steps, step)
		if !step.OK() {
			logx.Warn().Str("step", s.name).Int("exit", step.ExitCode).Err(step.Err).Msg("pipeline step failed")
			return result
		}
	}
	logx.Info().Str("message", message).Msg("pipeline published")
	return result
}

// Status runs git status --short.
func (p *Pipeline) Status(ctx context.Context) StepResult {
	if !p.enabled {
		return StepResult{Step: "status", Err: ErrPipelineDisabled, ExitCode: -1}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.run(ctx, "status", "status", "--short")
}

func (p *Pipeline) run(ctx context.Context, step string, args ...string) StepResult {
	out, code, err := p.runner.Run(ctx, p.dir, "git", args...)
	return StepResult{
		Step:     step,
		Command:  "git " + strings.Join(args, " "),
		Output:   out,
		ExitCode: code,
		Err:      err,
	}
}
