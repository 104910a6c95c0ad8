package models

// AuthToken is the session cookie captured from an authenticated session.
// It is shared read-only by every session derived from it.
type AuthToken struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  float64
	HTTPOnly bool
	Secure   bool
}

func (t AuthToken) IsZero() bool {
	return t.Name == "" || t.Value == ""
}
