package tools

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/sandbox"
)

// CodeExecutionTool runs shell commands in the sandbox. The manager already
// serializes execution and audits every command; this adapter only shapes the
// result for the model.
type CodeExecutionTool struct {
	manager *sandbox.Manager
}

// NewCodeExecutionTool creates the sandbox-backed execution tool.
func NewCodeExecutionTool(manager *sandbox.Manager) *CodeExecutionTool {
	return &CodeExecutionTool{manager: manager}
}

func (t *CodeExecutionTool) Name() string { return "code_execution" }

func (t *CodeExecutionTool) Description() string {
	return "サンドボックス内でシェルコマンドを実行します。入力は実行するコマンド文字列です。"
}

// Execute runs the command. A sandbox transport failure is an in-band result,
// not an error; the model can read it and decide what to do.
func (t *CodeExecutionTool) Execute(ctx context.Context, input string) (string, error) {
	res := t.manager.ExecuteCommand(ctx, input)
	if res.Failed {
		return fmt.Sprintf("実行に失敗しました: %s", res.Error), nil
	}
	if res.ExitCode != 0 {
		return fmt.Sprintf("終了コード %d:\n%s", res.ExitCode, res.Output), nil
	}
	return res.Output, nil
}
