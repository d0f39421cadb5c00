package registry

import "fmt"

// NotFoundError is returned when the registry, or the git host, has no
// such package version. URL is the tarball location that was attempted.
type NotFoundError struct {
	Name string
	URL  string
}

func (e *NotFoundError) Error() string {
	return "404 Not Found: " + e.Name + "@" + e.URL
}

// UnavailableError covers transport failures and unexpected statuses.
type UnavailableError struct {
	URL    string
	Status string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status: %s", e.URL, e.Status)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
