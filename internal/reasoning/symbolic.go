package reasoning

import (
	"fmt"
	"regexp"
)

// DeductionRule rewrites a matched fact into a deduced fact.
type DeductionRule struct {
	Pattern  *regexp.Regexp
	Template string
}

// SymbolicVerifier performs pattern-driven deductive closure over a set of
// facts. Rules fire repeatedly until no new fact is produced.
type SymbolicVerifier struct {
	rules []DeductionRule
}

// DefaultRules are the geometric construction deductions.
func DefaultRules() []DeductionRule {
	return []DeductionRule{
		// 点Xと点Yを結ぶ ⇒ 線分XYが存在する
		{
			Pattern:  regexp.MustCompile(`点([A-ZА-Яa-z0-9]+)と点([A-ZА-Яa-z0-9]+)を結ぶ`),
			Template: "線分%s%sが存在する",
		},
		// 点Mは線分XYの中点である ⇒ 線分XMと線分MYの長さは等しい
		{
			Pattern:  regexp.MustCompile(`点([A-ZА-Яa-z0-9]+)は線分([A-ZА-Яa-z0-9]+)([A-ZА-Яa-z0-9]+)の中点である`),
			Template: "線分%s%sと線分%s%sの長さは等しい",
		},
	}
}

// argLayouts maps each rule's capture groups into template arguments, e.g.
// the midpoint rule captures (M, X, Y) and emits (X, M, M, Y).
var argLayouts = [][]int{
	{0, 1},       // join rule: X, Y
	{1, 0, 0, 2}, // midpoint rule: X, M, M, Y
}

// NewSymbolicVerifier creates a verifier with the default rule set.
func NewSymbolicVerifier() *SymbolicVerifier {
	return &SymbolicVerifier{rules: DefaultRules()}
}

// Deduce computes the deductive closure of facts. The returned slice contains
// only the newly deduced facts, in deterministic order.
func (v *SymbolicVerifier) Deduce(facts []string) []string {
	known := make(map[string]bool, len(facts))
	for _, f := range facts {
		known[f] = true
	}

	queue := append([]string(nil), facts...)
	var deduced []string
	for len(queue) > 0 {
		fact := queue[0]
		queue = queue[1:]

		for ri, rule := range v.rules {
			m := rule.Pattern.FindStringSubmatch(fact)
			if m == nil {
				continue
			}
			layout := argLayouts[ri]
			args := make([]interface{}, len(layout))
			for i, idx := range layout {
				args[i] = m[idx+1]
			}
			newFact := fmt.Sprintf(rule.Template, args...)
			if !known[newFact] {
				known[newFact] = true
				deduced = append(deduced, newFact)
				queue = append(queue, newFact)
			}
		}
	}
	return deduced
}
