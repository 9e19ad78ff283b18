package service

import "fmt"

// Service errors
var (
	ErrServiceInit     = fmt.Errorf("service initialization error")
	ErrServiceShutdown = fmt.Errorf("service shutdown error")
	ErrNotConfigured   = fmt.Errorf("token and username are not configured")
	ErrRefreshInFlight = fmt.Errorf("repository refresh already running")
	ErrStaleCycle      = fmt.Errorf("refresh cycle superseded")
	ErrNotMonitored    = fmt.Errorf("repository has no local project")
	ErrClosed          = fmt.Errorf("service closed")
)
