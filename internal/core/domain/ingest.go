package domain

// IngestScope narrows an ingestion run. The zero value means "everything
// that changed".
type IngestScope struct {
	LawIDs      []string `json:"law_ids,omitempty"`
	Force       bool     `json:"force,omitempty"`
	SkipPDFs    bool     `json:"skip_pdfs,omitempty"`
	RequestedBy string   `json:"requested_by,omitempty"`
}

// Manifest is the persisted state of the last successful ingestion: per-law
// article file hashes and PDF file hashes, keyed by path relative to the
// corpus root. It is replaced wholesale after every run; units that failed
// carry their previous entries forward so they are retried next time.
type Manifest struct {
	Articles map[string]map[string]string `json:"articles"`
	PDFs     map[string]string            `json:"pdfs"`
}

// NewManifest returns an empty manifest with non-nil maps.
func NewManifest() Manifest {
	return Manifest{
		Articles: make(map[string]map[string]string),
		PDFs:     make(map[string]string),
	}
}
