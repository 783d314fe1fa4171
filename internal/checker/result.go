package checker

// Status classifies the outcome of one provisioning lookup.
type Status string

const (
	StatusAvailable     Status = "available"
	StatusUnavailable   Status = "unavailable"
	StatusInvestigation Status = "investigation"
	StatusCancelled     Status = "cancelled"
	StatusFailed        Status = "failed"
)

// InvestigationMessage is surfaced when the search page shows the
// "address could not be identified" banner and a manual re-search is needed.
const InvestigationMessage = "要手動再検索（住所をご確認ください）"

// InvestigationImageNote annotates rows where the manual-investigation
// banner image was present.
const InvestigationImageNote = "「住所を特定できないため、担当者がお調べします」の画像有"

// Result carries everything the judgement layer needs to map a lookup to a
// row verdict and note.
type Result struct {
	Status      Status
	Message     string
	Details     map[string]string
	SearchNotes []string
}

// ProgressFunc receives per-step progress messages for the worker log.
type ProgressFunc func(message string)
