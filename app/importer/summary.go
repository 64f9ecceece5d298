package importer

import (
	"github.com/lysyi3m/blog-porter/app/database"
	"github.com/lysyi3m/blog-porter/app/resources"
)

// Result is the outcome of importing one document.
type Result struct {
	Kind        resources.Kind
	SourceID    string
	Identifier  string
	Status      string
	Error       string
	MediaStored int
	MediaFailed int
	Rewritten   int
}

func (r *Result) fail(err error) {
	r.Status = database.StatusFailed
	r.Error = err.Error()
}

// Summary totals a run.
type Summary struct {
	Imported      int
	Skipped       int
	Failed        int
	MediaStored   int
	MediaFailed   int
	Results       []*Result
	ListingErrors map[string]string
}

func (s *Summary) add(r *Result) {
	if r == nil {
		return
	}
	s.Results = append(s.Results, r)
	s.MediaStored += r.MediaStored
	s.MediaFailed += r.MediaFailed

	switch r.Status {
	case database.StatusImported:
		s.Imported++
	case database.StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

func (s *Summary) addListingError(name string, err error) {
	if s.ListingErrors == nil {
		s.ListingErrors = make(map[string]string)
	}
	s.ListingErrors[name] = err.Error()
}
