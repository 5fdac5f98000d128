package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"oahushop/internal/config"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	// results keyed by the git subcommand
	outputs map[string]string
	codes   map[string]int
	errs    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) (string, int, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	sub := args[0]
	return f.outputs[sub], f.codes[sub], f.errs[sub]
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, codes: map[string]int{}, errs: map[string]error{}}
}

func TestPublishRunsAllSteps(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["commit"] = "[main 1a2b3c4] 배너 교체\n 1 file changed"
	p := NewPipeline(config.PipelineConfig{Enabled: true, Dir: "/srv/shop"}, runner)

	res := p.Publish(context.Background(), "  배너 교체 ")
	require.True(t, res.OK())
	require.Equal(t, "배너 교체", res.Message)
	require.Len(t, res.Steps, 3)
	require.Equal(t, "git commit -m 배너 교체", res.Steps[1].Command)
	require.Equal(t, runner.outputs["commit"], res.Steps[1].Output)

	require.Len(t, runner.calls, 3)
	for _, c := range runner.calls {
		require.Equal(t, "/srv/shop", c.dir)
		require.Equal(t, "git", c.name)
	}
	require.Equal(t, []string{"add", "-A"}, runner.calls[0].args)
	require.Equal(t, []string{"commit", "-m", "배너 교체"}, runner.calls[1].args)
	require.Equal(t, []string{"push"}, runner.calls[2].args)
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["commit"] = "nothing to commit, working tree clean"
	runner.codes["commit"] = 1
	p := NewPipeline(config.PipelineConfig{Enabled: true, Dir: "."}, runner)

	res := p.Publish(context.Background(), "")
	require.False(t, res.OK())
	require.Equal(t, DefaultCommitMessage, res.Message)
	require.Len(t, res.Steps, 2)
	require.Equal(t, 1, res.Steps[1].ExitCode)
	require.Equal(t, "nothing to commit, working tree clean", res.Steps[1].Output)
	require.Len(t, runner.calls, 2, "push is never attempted")
}

func TestPublishRunnerError(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["add"] = errors.New(`exec: "git": executable file not found in $PATH`)
	runner.codes["add"] = -1
	p := NewPipeline(config.PipelineConfig{Enabled: true}, runner)

	res := p.Publish(context.Background(), "x")
	require.False(t, res.OK())
	require.Len(t, res.Steps, 1)
	require.Error(t, res.Steps[0].Err)
}

func TestPipelineDisabled(t *testing.T) {
	runner := newFakeRunner()
	p := NewPipeline(config.PipelineConfig{Enabled: false}, runner)

	res := p.Publish(context.Background(), "x")
	require.False(t, res.OK())
	require.ErrorIs(t, res.Steps[0].Err, ErrPipelineDisabled)
	require.ErrorIs(t, p.Status(context.Background()).Err, ErrPipelineDisabled)
	require.Empty(t, runner.calls)
}

func TestStatus(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["status"] = " M data/settings.json\n"
	p := NewPipeline(config.PipelineConfig{Enabled: true}, runner)

	st := p.Status(context.Background())
	require.True(t, st.OK())
	require.Equal(t, "git status --short", st.Command)
	require.True(t, strings.Contains(st.Output, "settings.json"))
}

func TestExecRunnerExitCode(t *testing.T) {
	out, code, err := ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hi; exit 3")
	require.NoError(t, err)
	require.Equal(t, 3, code)
	require.Equal(t, "hi\n", out)

	_, code, err = ExecRunner{}.Run(context.Background(), t.TempDir(), "definitely-not-a-command-oahu")
	require.Error(t, err)
	require.Equal(t, -1, code)
}
