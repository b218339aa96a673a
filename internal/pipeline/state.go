package pipeline

// State is a position in the run state machine.
type State string

const (
	StateIdle      State = "idle"
	StateLocated   State = "located"
	StateCleaned   State = "cleaned"
	StateGenerated State = "generated"
	StateReported  State = "reported"
)

// StageName identifies an observable unit of work within a run.
type StageName string

const (
	StageLocate         StageName = "locate"
	StageBeforeClean    StageName = "before-clean"
	StageClean          StageName = "clean"
	StageAfterClean     StageName = "after-clean"
	StagePrepare        StageName = "prepare"
	StageBeforeGenerate StageName = "before-generate"
	StageGenerate       StageName = "generate"
	StageAfterGenerate  StageName = "after-generate"
)
