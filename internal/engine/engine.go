package engine

import (
	"context"
	"errors"

	"github.com/lucaproject/luca/internal/logging"
)

// Canned responses for failure modes the caller still gets an answer for.
const (
	apologyAnswer      = "申し訳ありません。思考中に問題が発生し、回答を生成できませんでした。"
	cancellationAnswer = "リクエストがキャンセルされたため、処理を中断しました。"
)

// Engine routes arbitrated decisions to pipelines. It is the only component
// that invokes a pipeline.
type Engine struct {
	pipelines map[string]Pipeline
	arbiter   *ResourceArbiter
	log       *logging.Logger
}

// New creates an engine over the given pipelines.
func New(arbiter *ResourceArbiter, pipelines ...Pipeline) *Engine {
	m := make(map[string]Pipeline, len(pipelines))
	for _, p := range pipelines {
		m[p.Name()] = p
	}
	return &Engine{
		pipelines: m,
		arbiter:   arbiter,
		log:       logging.Component("engine"),
	}
}

// Register adds a pipeline after construction, replacing any existing one
// with the same name.
func (e *Engine) Register(p Pipeline) {
	e.pipelines[p.Name()] = p
}

// Run arbitrates the decision, resolves the pipeline, and executes it.
// Pipeline panics become the apology response; cancellation becomes the
// cancellation response. Run never returns an error to the caller.
func (e *Engine) Run(ctx context.Context, query string, decision OrchestrationDecision) (resp *MasterResponse, executedMode string) {
	final := e.arbiter.Arbitrate(decision)

	pipeline, ok := e.pipelines[final.ChosenMode]
	if !ok {
		e.log.Warn("unknown pipeline %q, substituting %s", final.ChosenMode, ModeSimple)
		final.ChosenMode = ModeSimple
		pipeline = e.pipelines[ModeSimple]
		if pipeline == nil {
			return &MasterResponse{FinalAnswer: apologyAnswer}, final.ChosenMode
		}
	}

	resp = e.runGuarded(ctx, pipeline, query, final)
	return resp, final.ChosenMode
}

// runGuarded executes one pipeline with panic recovery.
func (e *Engine) runGuarded(ctx context.Context, p Pipeline, query string, decision OrchestrationDecision) (resp *MasterResponse) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("pipeline %s panicked: %v", p.Name(), r)
			resp = &MasterResponse{FinalAnswer: apologyAnswer}
		}
	}()

	out, err := p.Run(ctx, query, decision)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.log.Info("pipeline %s cancelled", p.Name())
			return &MasterResponse{FinalAnswer: cancellationAnswer}
		}
		e.log.Err(err, "pipeline %s failed", p.Name())
		return &MasterResponse{FinalAnswer: apologyAnswer}
	}
	if out == nil || out.FinalAnswer == "" {
		return &MasterResponse{FinalAnswer: apologyAnswer}
	}
	return out
}
