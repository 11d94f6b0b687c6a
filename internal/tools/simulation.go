package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// SimulationTool runs a small projectile simulation. The numeric outcome is
// recorded as a physical insight, giving later reasoning a grounded data
// point instead of a guess.
type SimulationTool struct {
	// Recorder receives the insight text for episodic memory; nil disables
	// recording.
	Recorder func(insight string)
}

// NewSimulationTool creates the simulation tool.
func NewSimulationTool(recorder func(string)) *SimulationTool {
	return &SimulationTool{Recorder: recorder}
}

func (t *SimulationTool) Name() string { return "physical_simulation" }

func (t *SimulationTool) Description() string {
	return "簡単な物理シミュレーション(投射運動)を実行します。入力は「速度,角度」(m/s, 度)です。"
}

// Execute parses "velocity,angle" and integrates the trajectory.
func (t *SimulationTool) Execute(_ context.Context, input string) (string, error) {
	var velocity, angle float64
	cleaned := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	if _, err := fmt.Sscanf(cleaned, "%f,%f", &velocity, &angle); err != nil {
		return "", fmt.Errorf("simulation input must be \"velocity,angle\": %w", err)
	}
	if velocity <= 0 || angle <= 0 || angle >= 90 {
		return "", fmt.Errorf("velocity must be positive and angle in (0, 90)")
	}

	const g = 9.81
	rad := angle * math.Pi / 180
	flightTime := 2 * velocity * math.Sin(rad) / g
	distance := velocity * math.Cos(rad) * flightTime
	peak := velocity * velocity * math.Sin(rad) * math.Sin(rad) / (2 * g)

	result := fmt.Sprintf(
		"初速%.1fm/s、角度%.1f度の投射: 飛行時間%.2f秒、到達距離%.2fm、最高点%.2fm",
		velocity, angle, flightTime, distance, peak)

	if t.Recorder != nil {
		t.Recorder(result)
	}
	return result, nil
}
