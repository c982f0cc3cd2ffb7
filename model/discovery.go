package model

// SongRef identifies a song together with the musician that justified
// recommending it.
type SongRef struct {
	SongSlug    string `json:"songSlug"`
	SongTitle   string `json:"songTitle"`
	ViaMusician string `json:"viaMusician"`
}

// DiscoverySession is the per-listener discovery state. History and Queue are
// session-scoped and deliberately not persisted.
type DiscoverySession struct {
	FollowingMusician string          `json:"followingMusician"`
	FollowMode        bool            `json:"followMode"`
	PlayedSongs       map[string]bool `json:"playedSongs"`
	CurrentSongSlug   string          `json:"currentSongSlug"`
	History           []SongRef       `json:"history"`
	NextSong          *SongRef        `json:"nextSong"`
	Queue             []string        `json:"queue"`
}

// PersistedSession is the serialized shape saved to the session store. Keep in
// sync with the fields listed above as persisted.
type PersistedSession struct {
	FollowingMusician string   `json:"followingMusician"`
	PlayedSongs       []string `json:"playedSongs"`
	CurrentSongSlug   string   `json:"currentSongSlug"`
	FollowMode        bool     `json:"followMode"`
}

// MusicianConnection is one catalog connection for a musician: another song
// they appear on and the context of that appearance.
type MusicianConnection struct {
	Song    string `json:"song"`
	Context string `json:"context"`
}
