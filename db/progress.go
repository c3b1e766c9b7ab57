package db

// Progress of a long running command, sent to the window as is
type ProgressUpdate struct {
	Curr    int    `json:"curr"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Receives progress of scans and bulk archive updates
type ProgressUpdater interface {
	UpdateProgress(curr int, total int, message string)
}

// ProgressFunc adapts a function to ProgressUpdater
type ProgressFunc func(curr int, total int, message string)

func (f ProgressFunc) UpdateProgress(curr int, total int, message string) {
	f(curr, total, message)
}
