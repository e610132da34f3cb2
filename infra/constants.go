package infra

// kafka topics for retrieval audit events. one topic keyed by bank id; downstream
// consumers fan out by event stage.
const (
	RetrievalEventTopic = "stmt-retrieval-events"
)

// event stages, in flow order.
const (
	StageSession    = "session"
	StageProfile    = "profile"
	StageAccounts   = "accounts"
	StageStatements = "statements"
	StageDownload   = "download"
)
