package calls

// StreamingStatus selects the direction of a SetStreamingStatus call.
type StreamingStatus string

const (
	// StatusPause suspends the active stream.
	StatusPause StreamingStatus = "pause"
	// StatusResume continues a paused stream.
	StatusResume StreamingStatus = "resume"
)

// Result reports the outcome of a coordinator operation that can succeed
// in more than one way.
type Result string

const (
	ResultTrackPaused   Result = "track_paused"
	ResultTrackResumed  Result = "track_resumed"
	ResultTrackSkipped  Result = "track_skipped"
	ResultVolumeChanged Result = "volume_changed"
	ResultStreamEnded   Result = "stream_ended"
	ResultNotInCall     Result = "not_in_call"
	ResultNoPlaylist    Result = "no_playlist"
)
