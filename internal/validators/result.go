package validators

// Result is the outcome of validating one candidate file. A result carries
// either a record or at least one error, never both.
type Result[T any] struct {
	SourceRepo string
	FilePath   string
	Record     *T
	Errors     []string
}

// Valid reports whether the candidate produced a record
func (r Result[T]) Valid() bool {
	return r.Record != nil && len(r.Errors) == 0
}

func invalid[T any](repo, path string, errs ...string) Result[T] {
	return Result[T]{SourceRepo: repo, FilePath: path, Errors: errs}
}

func valid[T any](repo, path string, record *T) Result[T] {
	return Result[T]{SourceRepo: repo, FilePath: path, Record: record}
}
