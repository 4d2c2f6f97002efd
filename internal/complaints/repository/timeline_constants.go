package repository

// ActorType constants identify the category of entity that produced a timeline event.
const (
	ActorTypeUser     = "User"     // Human operator acting through the API
	ActorTypeAI       = "AI"       // AI component (classifier, extractor, voice agent)
	ActorTypeSystem   = "System"   // Internal process (orchestrator, worker, dispatcher)
	ActorTypeCustomer = "Customer" // The complainant answering dialogue questions
)

// System actor name constants for AI and system actors.
// Human user actor names come from the authenticated identity.
const (
	ActorNameClassifier   = "IntakeClassifier"
	ActorNameDialogue     = "DialogueEngine"
	ActorNameOrchestrator = "Orchestrator"
	ActorNameCallExecutor = "CallExecutor"
	ActorNameFallback     = "FallbackCoordinator"
	ActorNameVoiceAgent   = "VoiceAgent"
)

// EventType constants identify the nature of a timeline event.
const (
	EventTypeIntake         = "intake"
	EventTypeClassification = "classification"
	EventTypeQuestion       = "question"
	EventTypeAnswer         = "answer"
	EventTypeDialogueReady  = "dialogue_ready"
	EventTypeCallQueued     = "call_queued"
	EventTypeCallOutcome    = "call_outcome"
	EventTypeFallback       = "fallback"
	EventTypeResolution     = "resolution"
	EventTypeEscalation     = "escalation"
	EventTypeStatusChange   = "status_change"
)

// EventTitle constants are the human-readable labels shown on the timeline.
const (
	EventTitleComplaintFiled       = "Complaint filed"
	EventTitleClassified           = "Complaint classified"
	EventTitleClassifierFallback   = "Classification fallback applied"
	EventTitleQuestionAsked        = "Follow-up question asked"
	EventTitleAnswerRecorded       = "Answer recorded"
	EventTitleDialogueReady        = "Context ready for resolution call"
	EventTitleCallQueued           = "Resolution call queued"
	EventTitleCallCompleted        = "Resolution call completed"
	EventTitleCallFailed           = "Resolution call failed"
	EventTitleFallbackCompleted    = "Mid-call information collected"
	EventTitleComplaintResolved    = "Complaint resolved"
	EventTitleComplaintEscalated   = "Complaint escalated"
	EventTitleResolutionDispatched = "Resolution actions dispatched"
)
