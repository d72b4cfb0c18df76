package sonar

import "errors"

// Errors returned by the sonar package.
var (
	ErrDevice           = errors.New("sonar: audio device error")
	ErrInvalidParameter = errors.New("sonar: invalid parameter")
	ErrAlreadyRunning   = errors.New("sonar: transport already running")
	ErrRunning          = errors.New("sonar: transport must be stopped")
)
