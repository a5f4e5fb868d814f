package sources

import "fmt"

// Failure records why one item dropped out of a stage
type Failure struct {
	SourceRepo string
	FilePath   string
	Err        error
}

// Error implements the error interface
func (f Failure) Error() string {
	if f.FilePath == "" {
		return fmt.Sprintf("%s: %v", f.SourceRepo, f.Err)
	}
	return fmt.Sprintf("%s/%s: %v", f.SourceRepo, f.FilePath, f.Err)
}

// Unwrap returns the underlying error
func (f Failure) Unwrap() error {
	return f.Err
}
