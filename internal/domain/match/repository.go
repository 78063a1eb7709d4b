package match

// Store holds the current reconciled board, keyed by fixture id.
type Store interface {
	Replace(items []Record)
	List() []Record
	Get(fixtureID int64) (Record, bool)
	Len() int
}
