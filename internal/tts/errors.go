package tts

import "errors"

var (
	// ErrEngineConfig means the engine path is missing or does not name
	// the VOICEVOX executable.
	ErrEngineConfig = errors.New("voicevox engine is not configured")

	// ErrEngineLaunchFailed means the engine process could not be started
	// or exited before becoming ready.
	ErrEngineLaunchFailed = errors.New("voicevox engine failed to launch")

	// ErrEngineTimeout means the engine did not answer the health probe
	// within the startup timeout.
	ErrEngineTimeout = errors.New("voicevox engine did not become ready")
)
