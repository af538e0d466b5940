package capture

import "fmt"

// Notice tells the UI what happened to an input event. None of these are
// errors: the event was either applied or deliberately not applied.
type Notice int

const (
	// NoticeAccepted means the event changed the capture.
	NoticeAccepted Notice = iota
	// NoticeDropped means the event carried an invalid coordinate.
	NoticeDropped
	// NoticeFiltered means the sampler judged the point redundant.
	NoticeFiltered
	// NoticeIgnored means the active mode does not take this kind of event.
	NoticeIgnored
	// NoticeApproachingLimit means the waypoint was added and the list is near the cap.
	NoticeApproachingLimit
	// NoticeLimitReached means the waypoint cap is reached and nothing was added.
	NoticeLimitReached
)

func (n Notice) String() string {
	switch n {
	case NoticeAccepted:
		return "accepted"
	case NoticeDropped:
		return "dropped"
	case NoticeFiltered:
		return "filtered"
	case NoticeIgnored:
		return "ignored"
	case NoticeApproachingLimit:
		return "approaching_limit"
	case NoticeLimitReached:
		return "limit_reached"
	default:
		return fmt.Sprintf("Notice(%d)", int(n))
	}
}

// Warning reports whether the UI should show the notice to the user.
func (n Notice) Warning() bool {
	return n == NoticeApproachingLimit || n == NoticeLimitReached
}
