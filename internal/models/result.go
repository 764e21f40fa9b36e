package models

// SimilarityResult is a chunk paired with its cosine distance to a query.
// Similarity is 1 - Distance.
type SimilarityResult struct {
	Chunk      Chunk   `json:"chunk"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// IngestResult reports the outcome of ingesting one file.
// Err is set when the file contributed no chunks because of a failure.
type IngestResult struct {
	Path    string `json:"path"`
	Chunks  int    `json:"chunks"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether ingestion of the file failed.
func (r IngestResult) Failed() bool {
	return r.Err != nil
}

// IngestReport aggregates the results of a directory ingestion.
type IngestReport struct {
	Root    string         `json:"root"`
	Files   []IngestResult `json:"files"`
	Chunks  int            `json:"chunks"`
	Failed  int            `json:"failed"`
	Skipped int            `json:"skipped"`
}

// Add records r in the report and updates the totals.
func (rep *IngestReport) Add(r IngestResult) {
	if r.Err != nil && r.Error == "" {
		r.Error = r.Err.Error()
	}
	rep.Files = append(rep.Files, r)
	rep.Chunks += r.Chunks
	switch {
	case r.Err != nil:
		rep.Failed++
	case r.Skipped:
		rep.Skipped++
	}
}
