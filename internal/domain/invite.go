package domain

import "time"

// Invite is an ephemeral invitation to a channel. It is keyed by
// (channel, invited user) and consumed on accept, reject, or when the
// user joins that channel through any other path. Invites never touch
// storage and do not survive a restart.
type Invite struct {
	ChannelID   ChannelID `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Inviter     string    `json:"inviter"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewInvite(channelID ChannelID, channelName, inviter string) Invite {
	return Invite{
		ChannelID:   channelID,
		ChannelName: channelName,
		Inviter:     inviter,
		CreatedAt:   time.Now(),
	}
}
