package domain

// Station represents a broadcasting channel within a source platform.
// ID is unique within a given PlatformID.
type Station struct {
	ID         string
	PlatformID string
	Name       string
	ASCIIName  *string
	URL        *string
	ImageURL   *string
}

// Equal reports whether two stations are the same record.
func (s Station) Equal(o Station) bool {
	return s.ID == o.ID &&
		s.PlatformID == o.PlatformID &&
		s.Name == o.Name &&
		ptrEqual(s.ASCIIName, o.ASCIIName) &&
		ptrEqual(s.URL, o.URL) &&
		ptrEqual(s.ImageURL, o.ImageURL)
}
