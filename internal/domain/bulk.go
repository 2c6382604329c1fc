package domain

// BulkFailure records one failed item of a bulk operation.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult aggregates per-item outcomes of a bulk operation. Every input
// id lands in exactly one of the two lists.
type BulkResult struct {
	Successful []string      `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

// NewBulkResult returns a result with non-nil slices so JSON renders empty
// arrays rather than null.
func NewBulkResult() *BulkResult {
	return &BulkResult{Successful: []string{}, Failed: []BulkFailure{}}
}

// AddSuccess records a succeeded id.
func (r *BulkResult) AddSuccess(id string) {
	r.Successful = append(r.Successful, id)
}

// AddFailure records a failed id with its error message.
func (r *BulkResult) AddFailure(id string, err error) {
	r.Failed = append(r.Failed, BulkFailure{ID: id, Error: err.Error()})
}
