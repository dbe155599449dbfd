package submission

import "github.com/couchcryptid/event-risk-client/internal/domain"

// Status names the active State variant.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is the submission lifecycle. Exactly one variant is active; the
// variants are Idle, Loading, Succeeded, and Failed.
type State interface {
	Status() Status
	sealed()
}

// Idle means nothing has been submitted yet.
type Idle struct{}

// Loading means a request is in flight. No earlier result is retained.
type Loading struct {
	Request domain.EventRequest
}

// Succeeded holds the forecast service's verdict.
type Succeeded struct {
	Result domain.ForecastResult
}

// Failed holds the message shown to the user.
type Failed struct {
	Message string
}

func (Idle) Status() Status      { return StatusIdle }
func (Loading) Status() Status   { return StatusLoading }
func (Succeeded) Status() Status { return StatusSucceeded }
func (Failed) Status() Status    { return StatusFailed }

func (Idle) sealed()      {}
func (Loading) sealed()   {}
func (Succeeded) sealed() {}
func (Failed) sealed()    {}

// View is the JSON-friendly rendering of a State for hosts.
type View struct {
	Status Status             `json:"status"`
	Result *domain.ResultView `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// ViewOf renders s, applying the result presentation on success.
func ViewOf(s State) View {
	switch st := s.(type) {
	case Succeeded:
		rv := domain.PresentResult(st.Result)
		return View{Status: StatusSucceeded, Result: &rv}
	case Failed:
		return View{Status: StatusFailed, Error: st.Message}
	case Loading:
		return View{Status: StatusLoading}
	default:
		return View{Status: StatusIdle}
	}
}
