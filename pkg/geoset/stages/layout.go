// Package stages defines the four concrete pipeline stages: download,
// extract, preprocess, cleanup.
package stages

import "path/filepath"

// Stage names, also the dependency keys between them.
const (
	DownloadName   = "download"
	ExtractName    = "extract"
	PreprocessName = "preprocess"
	CleanupName    = "cleanup"
)

// Layout fixes where a dataset's artifacts live under the destination
// folder:
//
//	{dest}/{dataset}.tar            raw archive (removed by cleanup)
//	{dest}/{dataset}/               per-member directories and tables
//	{dest}/{dataset}/extracts.txt   extraction sentinel
//	{dest}/{dataset}/done.txt       final completion log
type Layout struct {
	DestDir string
	Dataset string
}

// ArchivePath is the downloaded tar location.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.DestDir, l.Dataset+".tar")
}

// DatasetDir is the per-dataset working directory.
func (l Layout) DatasetDir() string {
	return filepath.Join(l.DestDir, l.Dataset)
}

// ExtractMarker is the sentinel written when extraction finishes.
func (l Layout) ExtractMarker() string {
	return filepath.Join(l.DatasetDir(), "extracts.txt")
}

// DoneLog is the completion log written by cleanup.
func (l Layout) DoneLog() string {
	return filepath.Join(l.DatasetDir(), "done.txt")
}
