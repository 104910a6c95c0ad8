package models

// Default search inputs used when a query leaves them unset.
var (
	DefaultTerm        = 1165
	DefaultDisciplines = []string{"ENG-Software", "MATH-Computer Science", "MATH-Computing & Financial Mgm"}
	DefaultLevels      = []string{"junior", "intermediate", "senior"}
)

// Query captures the search form inputs. Build it with NewQuery; the
// constructor copies slices so later edits by the caller don't leak in.
type Query struct {
	Term         int
	EmployerName string
	JobTitle     string
	Disciplines  []string
	Levels       []string
}

type QueryOption func(*Query)

func WithTerm(term int) QueryOption {
	return func(q *Query) { q.Term = term }
}

func WithEmployerName(name string) QueryOption {
	return func(q *Query) { q.EmployerName = name }
}

func WithJobTitle(title string) QueryOption {
	return func(q *Query) { q.JobTitle = title }
}

// WithDisciplines sets the ordered discipline list. The i-th entry targets
// the i-th discipline selector on the search form.
func WithDisciplines(disciplines ...string) QueryOption {
	return func(q *Query) { q.Disciplines = disciplines }
}

func WithLevels(levels ...string) QueryOption {
	return func(q *Query) { q.Levels = levels }
}

func NewQuery(opts ...QueryOption) Query {
	q := Query{
		Term:        DefaultTerm,
		Disciplines: DefaultDisciplines,
		Levels:      DefaultLevels,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q.Clone()
}

// Clone returns a deep copy.
func (q Query) Clone() Query {
	q.Disciplines = append([]string(nil), q.Disciplines...)
	q.Levels = append([]string(nil), q.Levels...)
	return q
}

// HasLevel reports whether name is one of the requested levels.
func (q Query) HasLevel(name string) bool {
	for _, level := range q.Levels {
		if level == name {
			return true
		}
	}
	return false
}
