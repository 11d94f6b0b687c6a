package prompts

// Template names used by the runtime. Pipelines look templates up by these
// names so the self-evolution cycle can refine any of them through the store.
const (
	OrchestrationDecision = "orchestration_decision"
	Planner               = "planner"
	Synthesis             = "synthesis"
	Critique              = "critique"
	SelfCorrection        = "self_correction"
	RetrievalEvaluation   = "retrieval_evaluation"
	ToTGenerate           = "tot_generate"
	ToTEvaluate           = "tot_evaluate"
	InternalDialogue      = "internal_dialogue"
	SpeculativeDraft      = "speculative_draft"
	SpeculativeVerify     = "speculative_verify"
	SelfDiscoverSelect    = "self_discover_select"
	MicroLLMDesign        = "micro_llm_design"
	GapAnalysis           = "gap_analysis"
	WisdomSynthesis       = "wisdom_synthesis"
	Consolidation         = "consolidation"
	ConceptualSynthesis   = "conceptual_synthesis"
	KnowledgeExtraction   = "knowledge_extraction"
	Summarize             = "summarize"
	Router                = "router"
	Master                = "master"
	ProblemDiscovery      = "problem_discovery"
	Hypothesis            = "hypothesis"
	DeductiveConclusion   = "deductive_conclusion"
	ProcessReward         = "process_reward"
	SelfImprovement       = "self_improvement"
	CapabilityMap         = "capability_map"
	StepVerifier          = "step_verifier"
	Mediator              = "mediator"
	PersonaGeneration     = "persona_generation"
	ModuleDecompose       = "module_decompose"
	ModuleCritique        = "module_critique"
	ModuleSynthesize      = "module_synthesize"
	BenchmarkJudge        = "benchmark_judge"
	AutonomousResearch    = "autonomous_research"
	SpecialistMatch       = "specialist_match"
	QueryRefinement       = "query_refinement"
	ToolSelection         = "tool_selection"
	ConsistencyCheck      = "consistency_check"
	ValueAssessment       = "value_assessment"
)

// defaultTemplates returns the built-in prompt set. Placeholders are filled
// with fmt.Sprintf at the call site; the self-evolution cycle may replace any
// template as long as it keeps the same placeholder count.
func defaultTemplates() map[string]string {
	return map[string]string{
		OrchestrationDecision: "あなたは認知アーキテクチャのオーケストレーターです。以下のユーザー入力に最適な思考モードを選択してください。\n\n入力: %s\n\n利用可能なモード: %s\n\nJSON形式で回答してください: {\"mode\": \"...\", \"reasoning\": \"...\", \"confidence\": 0.0}",
		Planner:               "以下の課題を解決するための思考計画を立ててください。記号的な検証が必要な場合は「記号的検証」、数学的証明が必要な場合は「数学的証明」と明記してください。\n\n課題: %s",
		Synthesis:             "以下の思考の軌跡を統合し、最終的な回答を作成してください。\n\n課題: %s\n\n軌跡:\n%s",
		Critique:              "以下の回答を批判的に検証してください。問題がなければ「問題なし」とだけ答えてください。問題があれば具体的に指摘してください。\n\n課題: %s\n\n回答: %s",
		SelfCorrection:        "以下の指摘に基づいて回答を修正してください。\n\n課題: %s\n\n回答: %s\n\n指摘: %s",
		RetrievalEvaluation:   "以下の情報が課題の解決にどの程度十分かを評価してください。JSON形式で回答してください: {\"completeness\": 0-10, \"relevance\": 0-10, \"next_action\": \"...\"}\n\n課題: %s\n\n情報:\n%s",
		ToTGenerate:           "以下の思考を一歩進める候補を%d個生成してください。各候補は改行で区切ってください。\n\n課題: %s\n\n現在の思考: %s",
		ToTEvaluate:           "以下の思考が課題の解決にどの程度有望かを0から10で評価してください。数値のみ答えてください。\n\n課題: %s\n\n思考: %s",
		InternalDialogue:      "あなたは「%s」です。%s\n\n対話の履歴:\n%s\n\n課題: %s\n\n次の発言をしてください。",
		SpeculativeDraft:      "以下の課題に対する回答の草案を簡潔に作成してください。\n\n課題: %s",
		SpeculativeVerify:     "以下の草案の中から最も正確なものを選び、改善した最終回答を作成してください。\n\n課題: %s\n\n草案:\n%s",
		SelfDiscoverSelect:    "以下の推論モジュールの中から、この課題に有効なものを選んでください。\n\n課題: %s\n\nモジュール:\n%s",
		MicroLLMDesign:        "トピック「%s」の専門家モデルのためのシステムプロンプトを作成してください。簡潔で具体的な指示にしてください。",
		GapAnalysis:           "以下のベンチマーク結果と能力マップを分析し、システムの弱点を特定してください。弱点がなければ「なし」と答えてください。\n\nベンチマーク結果:\n%s\n\n能力マップ:\n%s",
		WisdomSynthesis:       "以下の記憶の断片から、一般化できる知恵や原則を抽出してください。\n\n記憶:\n%s",
		Consolidation:         "以下のセッション記録を要約し、長期記憶に残すべき重要な事実を箇条書きで抽出してください。\n\n記録:\n%s",
		ConceptualSynthesis:   "概念「%s」と「%s」を合成した新しい概念について、その性質を説明してください。\n\n近傍の概念: %s",
		KnowledgeExtraction:   "以下のテキストから知識グラフの断片を抽出してください。JSON形式で回答してください: {\"nodes\": [{\"id\": \"...\", \"label\": \"...\"}], \"edges\": [{\"source\": \"...\", \"label\": \"...\", \"target\": \"...\"}]}\n\nテキスト:\n%s",
		Summarize:             "以下のテキストを簡潔に要約してください。\n\n%s",
		Router:                "以下の質問に答えるために外部知識の検索が必要かを判断してください。JSON形式で回答してください: {\"route\": \"RAG\" または \"DIRECT\"}\n\n質問: %s",
		Master:                "あなたは最終回答を作成する責任者です。以下の思考結果を踏まえ、課題への完全な回答を作成してください。\n\n課題: %s\n\n計画: %s\n\n思考結果:\n%s",
		ProblemDiscovery:      "以下の回答に潜在する問題やリスクを指摘してください。なければ「なし」と答えてください。\n\n課題: %s\n\n回答: %s",
		Hypothesis:            "以下の課題と既知の事実から、新しい補助的な構成または仮説を一つだけ提案してください。\n\n課題: %s\n\n既知の事実:\n%s",
		DeductiveConclusion:   "以下の既知の事実から、課題に対する現時点での結論を述べてください。証明が完了した場合は「結論として」で始めてください。\n\n課題: %s\n\n既知の事実:\n%s",
		ProcessReward:         "推論ステップ「%s」の質を評価してください。JSON形式で回答してください: {\"reward_score\": 0.0-1.0, \"justification\": \"...\"}\n\n内容:\n%s",
		SelfImprovement:       "以下の批判に基づいて、システムの改善提案をJSON配列で出力してください: [{\"type\": \"CreateMicroLLM\" または \"PromptRefinement\", \"details\": {...}}]\n\n批判:\n%s",
		CapabilityMap:         "以下のベンチマーク結果から、システムの能力を知識グラフの断片として抽出してください。JSON形式で回答してください: {\"nodes\": [...], \"edges\": [...]}\n\n結果:\n%s",
		StepVerifier:          "以下の回答を段階的に検証してください。正しければ「合格」とだけ答え、誤りがあれば指摘してください。\n\n課題: %s\n\n回答: %s",
		Mediator:              "あなたは対話の司会者です。以下の対話が十分に深まり結論に達したと判断したら「結論」とだけ答えてください。継続すべきなら「継続」と答えてください。\n\n対話:\n%s",
		PersonaGeneration:     "以下の課題を多角的に検討するための%d人の専門家ペルソナを生成してください。各行に「名前: 専門性の説明」の形式で出力してください。\n\n課題: %s",
		ModuleDecompose:       "課題を小さな部分問題に分解してください。\n\n課題: %s\n\nこれまでの検討:\n%s",
		ModuleCritique:        "これまでの検討を批判的に見直し、弱点を指摘してください。\n\n課題: %s\n\nこれまでの検討:\n%s",
		ModuleSynthesize:      "これまでの検討を統合し、まとまった回答を作成してください。\n\n課題: %s\n\nこれまでの検討:\n%s",
		BenchmarkJudge:        "以下の課題に対する回答の正確さを0.0から1.0で採点してください。数値のみ答えてください。\n\n課題: %s\n\n期待される要素: %s\n\n回答: %s",
		AutonomousResearch:    "トピック「%s」について、以下の調査結果を踏まえた洞察をまとめてください。\n\n調査結果:\n%s",
		SpecialistMatch:       "以下の質問が、登録された専門家ツールのいずれかの領域に該当するか判断してください。該当する場合はツール名を、しない場合は「なし」と答えてください。\n\n質問: %s\n\n専門家ツール:\n%s",
		QueryRefinement:       "以下の検索クエリでは十分な情報が得られませんでした。指摘を踏まえ、より良い検索クエリを一つだけ出力してください。\n\n元のクエリ: %s\n\n指摘: %s",
		ToolSelection:         "課題の解決に役立つツールを一つ選び、「ツール名: 入力」の形式で出力してください。\n\n課題: %s\n\n利用可能なツール:\n%s",
		ConsistencyCheck:      "あなたは論理分析の専門家です。以下の知識グラフの断片に、論理的な矛盾や不整合がないかを確認してください。矛盾を発見した場合は、その内容を具体的に指摘してください。問題がなければ「問題なし」と回答してください。\n\n知識グラフの断片:\n%s",
		ValueAssessment:       "あなたはAIの応答を評価する専門家です。現在のコアバリューは以下の通りです:\n%s\n\nAIの最終回答:\n%s\n\nこの最終回答が各コアバリュー(Helpfulness, Harmlessness, Honesty, Empathy)にどの程度貢献したか、-0.1から+0.1の範囲で各バリューの調整値をJSON形式で提案してください: {\"Helpfulness\": 0.0, \"Harmlessness\": 0.0, \"Honesty\": 0.0, \"Empathy\": 0.0}",
	}
}
