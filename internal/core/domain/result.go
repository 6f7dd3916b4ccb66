package domain

// ResultType tells the caller which payload of an AnalyticsResult is set.
type ResultType string

const (
	ResultValue      ResultType = "value"
	ResultData       ResultType = "data"
	ResultComparison ResultType = "comparison"
)

type ResultMetadata struct {
	Operation AnalyticsOp `json:"operation"`
	Field     string      `json:"field"`
	Scope     string      `json:"scope"`
	Count     int         `json:"count,omitempty"`
}

// AnalyticsResult is always produced, failures included: a failed result
// has Value 0, empty Data, Error set and an "Error: ..." message.
type AnalyticsResult struct {
	Type       ResultType     `json:"type"`
	Value      float64        `json:"value"`
	Data       []Row          `json:"data,omitempty"`
	Comparison *Comparison    `json:"comparison,omitempty"`
	Message    string         `json:"message"`
	Metadata   ResultMetadata `json:"metadata"`
	Error      string         `json:"error,omitempty"`
}

func (r *AnalyticsResult) Failed() bool {
	return r != nil && r.Error != ""
}

// ErrorResult builds a failed result. detail is the user-facing text after
// "Error: "; err keeps the machine-readable cause.
func ErrorResult(req AnalyticsOperation, scope string, err error, detail string) *AnalyticsResult {
	if detail == "" {
		detail = capitalize(err.Error())
	}
	return &AnalyticsResult{
		Type:    ResultValue,
		Data:    []Row{},
		Message: "Error: " + detail,
		Metadata: ResultMetadata{
			Operation: req.Operation,
			Field:     req.Field,
			Scope:     scope,
		},
		Error: err.Error(),
	}
}
