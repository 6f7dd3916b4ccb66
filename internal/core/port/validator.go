package port

// QueryValidator checks a dataset query before a source runs it.
type QueryValidator interface {
	Validate(sql string) error
}
