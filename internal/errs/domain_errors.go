package errs

// Sentinels used across the engine. Handlers compare with errors.Is.
var (
	ErrChannelNotFound = NotFound("channel not found")
	ErrUserNotFound    = NotFound("user not found")
	ErrInviteNotFound  = NotFound("invite not found")

	ErrNotAMember       = Forbidden("requester is not a member of the channel")
	ErrTargetNotMember  = Forbidden("target is not a member of the channel")
	ErrInsufficientRole = Forbidden("normal members may not moderate")
	ErrSameRole         = Forbidden("requester and target hold the same role")
	ErrOwnerImmune      = Forbidden("the channel owner cannot be targeted")
	ErrOwnerOnly        = Forbidden("only the owner may grant or revoke admin")
	ErrNotOwner         = Forbidden("only the owner may do this")
	ErrMuted            = Forbidden("user is muted in the channel")

	// A banned user knocking on the channel is a state conflict, not an
	// authority failure: no moderation rule ran against them.
	ErrBanned           = Conflict("user is banned from the channel")
	ErrChannelNameTaken = Conflict("channel name already in use")
	ErrNicknameTaken    = Conflict("nickname already in use")
	ErrChannelFull      = Conflict("channel is at capacity")
	ErrAlreadyMember    = Conflict("user is already a member")
	ErrAlreadyInChannel = Conflict("user already belongs to a channel")

	ErrBadPassword    = InvalidState("wrong channel password")
	ErrPrivateChannel = InvalidState("channel is invite-only")
	ErrNotInChannel   = InvalidState("user does not belong to a channel")
)
