package bootstrap

// State identifies the current phase of a bootstrap run.
type State int

const (
	StateIdle State = iota
	StateCheckingTooling
	StateDetecting
	StateBaselining
	StateUpgrading
	StateVerifying
	StateReporting
	StateStartingService
)

var stateNames = map[State]string{
	StateIdle:            "IDLE",
	StateCheckingTooling: "CHECKING_TOOLING",
	StateDetecting:       "DETECTING",
	StateBaselining:      "BASELINING",
	StateUpgrading:       "UPGRADING",
	StateVerifying:       "VERIFYING",
	StateReporting:       "REPORTING",
	StateStartingService: "STARTING_SERVICE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
