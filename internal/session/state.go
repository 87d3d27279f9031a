package session

type State string

const (
	StateReady        State = "Ready"
	StateConnecting   State = "Connecting"
	StateOnline       State = "Online"
	StateDisconnected State = "Disconnected"
	StateOffline      State = "Offline"
)

func (s State) String() string {
	return string(s)
}

func stateNames(states []State) []string {
	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, string(state))
	}
	return names
}
