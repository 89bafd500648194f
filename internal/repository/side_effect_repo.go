package repository

import "context"

// ResumeDispatcher hands resume downloads to an asynchronous downloader.
type ResumeDispatcher interface {
	// Dispatch derives the file name from candidateName and reports whether
	// the request was issued, not whether the download completed.
	Dispatch(ctx context.Context, resumeURL string, serialNumber int, candidateName string) bool
}

// Exporter turns tabular records into a downloadable spreadsheet.
type Exporter interface {
	// Export writes the sheet and returns the path of the produced file.
	Export(ctx context.Context, headers []string, rows [][]string) (string, error)
}
