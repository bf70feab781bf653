package emulator

const (
	PageSize  = 4096
	pageShift = 12
)

type MemoryPage struct {
	Block       [PageSize]byte
	StartAddr   uint64
	Initialized [PageSize]bool
}

type MemoryImage struct {
	Blocks map[uint64]*MemoryPage
}

type State int

const (
	StateStopped State = iota
	StateRunning
	StateEnd
	StateAbort
	StateQuit
)

var stateNames = map[State]string{
	StateStopped: "stopped",
	StateRunning: "running",
	StateEnd:     "end",
	StateAbort:   "abort",
	StateQuit:    "quit",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

type EmulatorConfig struct {
	Memory               *MemoryImage
	EntryPoint           uint64
	StackStartAddress    uint64
	RuntimeLimit         uint64 // zero means unlimited
	RuntimeErrorCallback func(RuntimeException)
}

type RuntimeException struct {
	regs    [32]uint64
	pc      uint64
	message string
}

// StepHook runs after every executed instruction. Returning true stops execution.
type StepHook func(inst *EmulatorInstance) bool

type EmulatorInstance struct {
	registers [32]uint64
	memory    *MemoryImage
	pc        uint64
	entry     uint64
	dCache    *MemoryPage

	state   State
	haltPC  uint64
	haltRet uint64

	// statistics
	executedInstructions uint64
	runtimeLimit         uint64
	errors               []RuntimeException

	runtimeErrorCallback func(RuntimeException)
	stepHook             StepHook
}
