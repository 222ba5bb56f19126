package synthesis

// Messages holds every user-facing string the synthesizer emits.
type Messages struct {
	NoData            string
	NoSubgraph        string
	None              string
	Unmapped          string
	SubgraphSeparator string

	MappedConceptLabel string
	FacetLabel         string

	// Failure texts. FailureFormat receives the failure reason.
	FailureFormat string
	FailureNotice string
	FailureTrace  []string

	// Trace steps, in order: query text, qtype, concept code, summary count, fallback.
	TraceQuestion string
	TraceFacet    string
	TraceConcept  string
	TraceSubgraph string
	TraceFallback string
	TraceCompare  string

	// Status shown after a successful run.
	StatusDone string
}

var zhTW = Messages{
	NoData:             "無資料",
	NoSubgraph:         "無子圖摘要",
	None:               "無",
	Unmapped:           "-",
	SubgraphSeparator:  "；",
	MappedConceptLabel: "Mapped Concept",
	FacetLabel:         "Facet",
	FailureFormat:      "系統請求失敗：%s",
	FailureNotice:      "請確認後端 API、Neo4j、Ollama 是否已啟動。",
	FailureTrace:       []string{"1. 前端發送 API 請求", "2. 連線失敗，請檢查服務狀態"},
	TraceQuestion:      "1. 問題解析：%s",
	TraceFacet:         "2. 類型判定：%s",
	TraceConcept:       "3. 概念映射：%s",
	TraceSubgraph:      "4. 子圖檢索：%d 條摘要",
	TraceFallback:      "5. Fallback：%s",
	TraceCompare:       "6. 生成答案：知識圖譜 + LLM 與純 LLM 比較",
	StatusDone:         "已完成查詢",
}

var en = Messages{
	NoData:             "No data",
	NoSubgraph:         "No subgraph summary",
	None:               "none",
	Unmapped:           "-",
	SubgraphSeparator:  "; ",
	MappedConceptLabel: "Mapped Concept",
	FacetLabel:         "Facet",
	FailureFormat:      "System request failed: %s",
	FailureNotice:      "Check that the backend API, Neo4j and Ollama are running.",
	FailureTrace:       []string{"1. Client sent API requests", "2. Connection failed, check service status"},
	TraceQuestion:      "1. Question parsed: %s",
	TraceFacet:         "2. Question type: %s",
	TraceConcept:       "3. Concept mapping: %s",
	TraceSubgraph:      "4. Subgraph retrieval: %d summaries",
	TraceFallback:      "5. Fallback: %s",
	TraceCompare:       "6. Answer generation: knowledge graph + LLM compared with LLM only",
	StatusDone:         "Query completed",
}

// MessagesFor returns the catalog for locale. Unknown locales get zh-TW.
func MessagesFor(locale string) Messages {
	if locale == "en" {
		return en
	}
	return zhTW
}
