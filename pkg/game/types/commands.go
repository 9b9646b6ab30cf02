package types

// Commands are queued by local presentation surfaces and applied on the
// coordinator's tick goroutine.

type BeginPreparationCommand struct{}

type StopRoundCommand struct{}

type ReturnToLobbyCommand struct{}

type SetGameModeCommand struct {
	Mode GameMode
}

type ReportFoundCommand struct {
	ParticipantID string
}

type ReportInfectedCommand struct {
	ParticipantID string
}
