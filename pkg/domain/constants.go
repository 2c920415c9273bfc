package domain

// StartNodeID is the canonical id given to the entry node of every graph,
// whatever id the workflow document used for it.
const StartNodeID = "start00000000"

// NodeType is the behavioural tag of a node, resolved from the document class.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeText      NodeType = "text"
	NodeTypeListen    NodeType = "listen"
	NodeTypeEnd       NodeType = "end"
	NodeTypeDecider   NodeType = "decider"
	NodeTypeIntent    NodeType = "intent"
	NodeTypeQa        NodeType = "qa"
	NodeTypeAi        NodeType = "ai"
	NodeTypeValidator NodeType = "validator"
	NodeTypeSetValue  NodeType = "set"
	NodeTypeCounter   NodeType = "counter"
	NodeTypeIf        NodeType = "if"
	NodeTypeTicket    NodeType = "ticket"
)

// Tracker keys seeded at session start.
const (
	KeyCurrentNode     = "current_node"
	KeyLastUtterance   = "last_utterance"
	KeyLastResponse    = "last_response"
	KeySessionID       = "session_id"
	KeyHistory         = "history"
	KeyTimeoutIters    = "timeout_iters"
	KeyCurrentIntent   = "current_intent"
	KeyCreatedAt       = "created_at"
	KeyEndedAt         = "ended_at"
	KeyName            = "name"
	KeyEmail           = "email"
	KeyRole            = "role"
	KeyDataUserConsent = "data_user_consent"
	KeyApplicationData = "application_data"
	KeyTimeout         = "timeout"
	KeyDelay           = "delay"
	KeyOrigin          = "origin"
	KeyAgentName       = "agent_name"
	KeyUserAgent       = "user_agent"
	KeyTicketResponse  = "ticket_response"
)

// Intents with a fixed meaning across handlers.
const (
	IntentSuccess = "success"
	IntentFail    = "fail"
	IntentValid   = "valid"
	IntentYes     = "yes"
	IntentNo      = "no"
)
