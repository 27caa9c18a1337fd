package domain

// Command is a symbolic command received from an authenticated token.
type Command string

// Recognized commands. Matching is case-sensitive.
const (
	CommandAllowNetwork Command = "ALLOW_NETWORK"
	CommandBlockNetwork Command = "BLOCK_NETWORK"
	CommandLockScreen   Command = "LOCK_SCREEN"
	CommandLockUSB      Command = "LOCK_USB"
	CommandUnlockUSB    Command = "UNLOCK_USB"
	CommandCheckStatus  Command = "CHECK_STATUS"
)

// ActionKind is how a command is carried out.
type ActionKind int

const (
	// ActionScript runs a dispatch script from the script directory.
	ActionScript ActionKind = iota + 1
	// ActionStatus runs the platform process listing.
	ActionStatus
)

// Action describes how a recognized command is executed.
type Action struct {
	Command Command
	Kind    ActionKind
	// Code is the script base name; empty for ActionStatus.
	Code string
}

var actions = map[Command]Action{
	CommandAllowNetwork: {Command: CommandAllowNetwork, Kind: ActionScript, Code: "an"},
	CommandBlockNetwork: {Command: CommandBlockNetwork, Kind: ActionScript, Code: "bn"},
	CommandLockScreen:   {Command: CommandLockScreen, Kind: ActionScript, Code: "sl"},
	CommandLockUSB:      {Command: CommandLockUSB, Kind: ActionScript, Code: "lu"},
	CommandUnlockUSB:    {Command: CommandUnlockUSB, Kind: ActionScript, Code: "uu"},
	CommandCheckStatus:  {Command: CommandCheckStatus, Kind: ActionStatus},
}

// LookupAction returns the action for a command string.
func LookupAction(command string) (Action, bool) {
	a, ok := actions[Command(command)]
	return a, ok
}

// ScriptCodes returns the script codes in a stable order.
func ScriptCodes() []string {
	return []string{"an", "bn", "sl", "lu", "uu"}
}

// Commands returns all recognized commands in a stable order.
func Commands() []Command {
	return []Command{
		CommandAllowNetwork,
		CommandBlockNetwork,
		CommandLockScreen,
		CommandLockUSB,
		CommandUnlockUSB,
		CommandCheckStatus,
	}
}
