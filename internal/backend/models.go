package backend

// Session is the authenticated backend session returned by Login/Register.
type Session struct {
	// Username is the application account name.
	Username string `json:"username"`
	// AccessToken is the bearer credential for /api requests.
	AccessToken string `json:"access_token"`
	// TokenType is normally "bearer".
	TokenType string `json:"token_type"`
}

// UserProfile is the normalized shape of a backend user.
type UserProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	SpotifyLink bool   `json:"spotify_linked"`
}

// Friend is one entry of the friends list.
type Friend struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	// Status is "accepted" or "pending".
	Status string `json:"status,omitempty"`
}

// Community is a group a user can join and share music into.
type Community struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count"`
	Joined      bool   `json:"joined"`
}

// PollOption is one votable choice of a poll.
type PollOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// Poll is a community poll, typically "which track/album wins".
type Poll struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	// VotedOption is the option the current user voted for, empty if none.
	VotedOption string `json:"voted_option,omitempty"`
}

// Overview aggregates the data the home screen renders.
type Overview struct {
	Friends     []Friend    `json:"friends"`
	Communities []Community `json:"communities"`
	Polls       []Poll      `json:"polls"`
}

// ApplyVote applies a vote to a poll in place, before the next refetch
// confirms it. Voting again for the same option is a no-op; switching
// options moves the local count.
func ApplyVote(p *Poll, optionID string) {
	if p == nil || p.VotedOption == optionID {
		return
	}
	for i := range p.Options {
		switch p.Options[i].ID {
		case optionID:
			p.Options[i].Votes++
		case p.VotedOption:
			if p.Options[i].Votes > 0 {
				p.Options[i].Votes--
			}
		}
	}
	p.VotedOption = optionID
}
