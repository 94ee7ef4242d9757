// Package scheduler implements the Scheduler & Gates state machine of
// spec §4.6: the cooperative pipeline driver that walks a fixed state
// order, parks on any of five gate conditions between items, and
// orchestrates cache flush/merge at the Files->Emails and
// Emails->Finished state boundaries.
package scheduler

import "fmt"

// State is one node of the scheduler's fixed first-run state order.
type State int

const (
	StateConfig State = iota
	StateApplications
	StateFiles
	StateCrawlFiles
	StateConversations
	StateWebHistory
	StateExternal
	StateEmails
	StateFinished
)

// Order is the first-run state sequence of spec §4.6.
var Order = []State{
	StateConfig,
	StateApplications,
	StateFiles,
	StateCrawlFiles,
	StateConversations,
	StateWebHistory,
	StateExternal,
	StateEmails,
	StateFinished,
}

func (s State) String() string {
	switch s {
	case StateConfig:
		return "Config"
	case StateApplications:
		return "Applications"
	case StateFiles:
		return "Files"
	case StateCrawlFiles:
		return "CrawlFiles"
	case StateConversations:
		return "Conversations"
	case StateWebHistory:
		return "WebHistory"
	case StateExternal:
		return "External"
	case StateEmails:
		return "Emails"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Next returns the state following s in Order, and false at Finished.
func Next(s State) (State, bool) {
	for i, st := range Order {
		if st == s && i+1 < len(Order) {
			return Order[i+1], true
		}
	}
	return StateFinished, false
}
