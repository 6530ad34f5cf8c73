package domain

import "fmt"

// OutcomeKind tags which variant an Outcome holds.
type OutcomeKind string

const (
	// OutcomeSuccess means the endpoint reported no errors.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure means the endpoint returned a list of errors.
	OutcomeFailure OutcomeKind = "failure"
	// OutcomeUnparseable means a response arrived but matched no known shape.
	OutcomeUnparseable OutcomeKind = "unparseable"
	// OutcomeError means no response was produced (retries exhausted, cancelled, timed out).
	OutcomeError OutcomeKind = "error"
)

// Outcome is the classification of a lint run.
// The zero value is not valid; build one with the constructors below.
type Outcome struct {
	kind        OutcomeKind
	message     string
	items       []string
	badKeywords []string
}

// Success builds the outcome for a clean lint.
func Success(message string) Outcome {
	return Outcome{kind: OutcomeSuccess, message: message}
}

// StructuredFailure builds the outcome for a parsed error list.
// items must not be empty.
func StructuredFailure(items, badKeywords []string) Outcome {
	if len(items) == 0 {
		panic("domain: StructuredFailure requires at least one item")
	}
	return Outcome{
		kind:        OutcomeFailure,
		items:       append([]string(nil), items...),
		badKeywords: append([]string(nil), badKeywords...),
	}
}

// Unparseable builds the outcome for a response that could not be classified.
func Unparseable(diagnostic string) Outcome {
	return Outcome{kind: OutcomeUnparseable, message: diagnostic}
}

// RunError builds the outcome for a run that never produced a response.
func RunError(message string) Outcome {
	return Outcome{kind: OutcomeError, message: message}
}

func (o Outcome) Kind() OutcomeKind { return o.kind }

// Message is the success text, the unparseable diagnostic or the run error.
func (o Outcome) Message() string { return o.message }

// Items returns the error strings of a StructuredFailure in document order.
func (o Outcome) Items() []string { return append([]string(nil), o.items...) }

// BadKeywords returns the unrecognized key names, in the order of the items they came from.
func (o Outcome) BadKeywords() []string { return append([]string(nil), o.badKeywords...) }

// ErrorItems is the itemized list shown to the user.
// An unparseable response becomes a single synthetic item so callers render both the same way.
func (o Outcome) ErrorItems() []string {
	switch o.kind {
	case OutcomeFailure:
		return o.Items()
	case OutcomeUnparseable:
		return []string{"* Error: " + o.message}
	default:
		return nil
	}
}

func (o Outcome) String() string {
	switch o.kind {
	case OutcomeFailure:
		return fmt.Sprintf("%s(%d items)", o.kind, len(o.items))
	default:
		return fmt.Sprintf("%s(%q)", o.kind, o.message)
	}
}

// Result converts the outcome into its wire form.
func (o Outcome) Result(jobID string) JobResult {
	return JobResult{
		JobID:       jobID,
		Kind:        o.kind,
		Message:     o.message,
		Items:       o.Items(),
		BadKeywords: o.BadKeywords(),
	}
}

// Outcome rebuilds the classification carried by a JobResult.
func (r JobResult) Outcome() (Outcome, error) {
	switch r.Kind {
	case OutcomeSuccess:
		return Success(r.Message), nil
	case OutcomeFailure:
		if len(r.Items) == 0 {
			return Outcome{}, fmt.Errorf("job %s: failure result has no items", r.JobID)
		}
		return StructuredFailure(r.Items, r.BadKeywords), nil
	case OutcomeUnparseable:
		return Unparseable(r.Message), nil
	case OutcomeError:
		return RunError(r.Message), nil
	default:
		return Outcome{}, fmt.Errorf("job %s: unknown result kind %q", r.JobID, r.Kind)
	}
}
