package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// BenchmarkTask is one canned probe of system capability.
type BenchmarkTask struct {
	Name     string
	Query    string
	Expected string
}

// DefaultBenchmarkTasks probe the capabilities the runtime claims to have.
func DefaultBenchmarkTasks() []BenchmarkTask {
	return []BenchmarkTask{
		{Name: "arithmetic", Query: "17と25の積を求めてください。", Expected: "425"},
		{Name: "summarization", Query: "「分散システムでは部分故障が常態である」という主張を一文で説明してください。", Expected: "部分故障"},
		{Name: "reasoning", Query: "AはBより背が高く、BはCより背が高い。最も背が高いのは誰ですか。", Expected: "A"},
	}
}

// BenchmarkReport is the outcome of one benchmark run.
type BenchmarkReport struct {
	OverallScore float64            `json:"overall_score"`
	TaskScores   map[string]float64 `json:"task_scores"`
}

// Render formats the report for prompts and logs.
func (r BenchmarkReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "総合スコア: %.2f\n", r.OverallScore)
	for name, score := range r.TaskScores {
		fmt.Fprintf(&b, "- %s: %.2f\n", name, score)
	}
	return b.String()
}

// AnswerRunner produces an answer for a benchmark query. The engine satisfies
// this; the interface lives here to break the benchmark/engine construction
// cycle.
type AnswerRunner interface {
	Answer(ctx context.Context, query string) (string, error)
}

// PerformanceBenchmarkAgent runs the canned tasks through the engine and
// scores the answers with a judge call.
type PerformanceBenchmarkAgent struct {
	*Base
	tasks  []BenchmarkTask
	runner AnswerRunner
}

// NewPerformanceBenchmarkAgent creates the benchmark agent. The runner is
// wired after engine construction via SetRunner.
func NewPerformanceBenchmarkAgent(base *Base) *PerformanceBenchmarkAgent {
	return &PerformanceBenchmarkAgent{Base: base, tasks: DefaultBenchmarkTasks()}
}

// SetRunner wires the answer runner. One-shot, called after construction.
func (a *PerformanceBenchmarkAgent) SetRunner(r AnswerRunner) {
	a.runner = r
}

// Run executes all tasks and returns the averaged report. A task whose
// answer or judge call fails scores zero.
func (a *PerformanceBenchmarkAgent) Run(ctx context.Context) (BenchmarkReport, error) {
	if a.runner == nil {
		return BenchmarkReport{}, fmt.Errorf("benchmark runner not wired")
	}

	report := BenchmarkReport{TaskScores: make(map[string]float64)}
	var total float64
	for _, task := range a.tasks {
		score := a.scoreTask(ctx, task)
		report.TaskScores[task.Name] = score
		total += score
	}
	if len(a.tasks) > 0 {
		report.OverallScore = total / float64(len(a.tasks))
	}
	return report, nil
}

func (a *PerformanceBenchmarkAgent) scoreTask(ctx context.Context, task BenchmarkTask) float64 {
	answer, err := a.runner.Answer(ctx, task.Query)
	if err != nil {
		return 0
	}
	out, err := a.invoke(ctx, prompts.BenchmarkJudge, task.Query, task.Expected, answer)
	if err != nil {
		return 0
	}
	score, err := parseScore(out)
	if err != nil {
		return 0
	}
	return score
}
