package logger

// Tabulation and HTTP counters. These never log on their own; TotalErrors and
// TotalWarnings are counted by Error and Warn.

// RecordRun counts a finished run
func RecordRun(failed bool) {
	TotalRuns.Add(1)
	if failed {
		FailedRuns.Add(1)
	}
}

// RecordWarning counts a data-quality warning by kind.
func RecordWarning(kind string) {
	switch kind {
	case "duplicate_answer":
		DuplicateAnswers.Add(1)
	case "out_of_domain":
		OutOfDomainResponses.Add(1)
	case "derivation":
		DerivationFailures.Add(1)
	}
}

// RecordHTTPStatus counts 4xx and 5xx responses
func RecordHTTPStatus(status int) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Errors               int64 `json:"errors"`
	Warnings             int64 `json:"warnings"`
	Runs                 int64 `json:"runs"`
	FailedRuns           int64 `json:"failedRuns"`
	DuplicateAnswers     int64 `json:"duplicateAnswers"`
	OutOfDomainResponses int64 `json:"outOfDomainResponses"`
	DerivationFailures   int64 `json:"derivationFailures"`
	HTTP4xx              int64 `json:"http4xx"`
	HTTP5xx              int64 `json:"http5xx"`
}

// Counters returns the current counter values
func Counters() Snapshot {
	return Snapshot{
		Errors:               TotalErrors.Load(),
		Warnings:             TotalWarnings.Load(),
		Runs:                 TotalRuns.Load(),
		FailedRuns:           FailedRuns.Load(),
		DuplicateAnswers:     DuplicateAnswers.Load(),
		OutOfDomainResponses: OutOfDomainResponses.Load(),
		DerivationFailures:   DerivationFailures.Load(),
		HTTP4xx:              Total4xxErrors.Load(),
		HTTP5xx:              Total5xxErrors.Load(),
	}
}
