package pipeline

// State is the stage of an ingestion run.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateParsing
	StateEnriching
	StatePersisting
	StateBookmarkUpdate
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateEnriching:
		return "enriching"
	case StatePersisting:
		return "persisting"
	case StateBookmarkUpdate:
		return "bookmark_update"
	default:
		return "unknown"
	}
}
