// Package domain models an event weather-risk check: the event draft a user
// fills in, the place candidates a geocoder offers for it, and the forecast
// verdict returned by the remote forecast service.
//
// # Event Draft
//
// An [EventDraft] carries four fields, each replaced independently:
//
//	name        free text, required
//	location    coordinates + label, set only by explicit selection
//	start_time  minute precision as supplied by the UI, e.g. "2024-04-26T14:00"
//	end_time    same format as start_time
//
// The draft is valid when the name and both timestamps are non-empty and the
// location carries finite coordinates. A typed place name alone never counts
// as a location.
//
// # Payload Normalization
//
// The forecast service expects second precision. [EventDraft.ToSubmissionPayload]
// appends ":00" to both timestamps and performs no other conversion:
//
//	"2024-04-26T14:00"  →  "2024-04-26T14:00:00"
//
// # Classification
//
// The forecast service classifies the event window as one of:
//
//	Safe    no adverse conditions
//	Risky   rain probability > 60%, moderate rain codes, or wind 30–50 km/h
//	Unsafe  thunderstorm or heavy precipitation codes, or wind > 50 km/h
//
// Presentation of each class is fixed by [Present]. Unknown classes render as
// Safe. Hourly rows are tiered by rain probability: >60 high, >30 medium,
// otherwise low (see [RainTierFor]).
package domain
