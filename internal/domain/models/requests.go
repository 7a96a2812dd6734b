package models

// UpdateRequest triggers an artifact update; an empty ticker updates every artifact.
type UpdateRequest struct {
	Ticker string `json:"ticker" validate:"omitempty,uppercase,alphanum,max=10"`
}

// ArtifactRequest selects the current artifact of one instrument.
type ArtifactRequest struct {
	Ticker string `param:"ticker" validate:"required,uppercase,alphanum,max=10"`
}

// RunsRequest pages through recorded update runs.
type RunsRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=500"`
}
