package booking

import "github.com/google/uuid"

// Action is a lifecycle command applied to a booking.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionMarkPaid Action = "mark-paid"
	ActionComplete Action = "complete"
)

// ActorRole is the role a caller acts under.
type ActorRole string

const (
	RoleRenter ActorRole = "renter"
	RoleOwner  ActorRole = "owner"
	RoleAdmin  ActorRole = "admin"

	// RoleSystem is used by internal consumers and carries admin permissions.
	RoleSystem ActorRole = "system"
)

// IsValid returns true if the role is recognized.
func (r ActorRole) IsValid() bool {
	switch r {
	case RoleRenter, RoleOwner, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

func (r ActorRole) permissionRole() ActorRole {
	if r == RoleSystem {
		return RoleAdmin
	}
	return r
}

// Actor is the caller requesting an action.
type Actor struct {
	ID   uuid.UUID
	Role ActorRole
}

// SystemActor returns the actor used for transitions triggered by internal events.
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Role: RoleSystem}
}

// IsAdmin reports whether the actor has admin permissions.
func (a Actor) IsAdmin() bool {
	return a.Role.permissionRole() == RoleAdmin
}

type transitionRule struct {
	from   []BookingStatus
	actors []ActorRole
	to     BookingStatus
}

// transitionRules defines the booking state machine.
var transitionRules = map[Action]transitionRule{
	ActionApprove: {
		from:   []BookingStatus{StatusPending},
		actors: []ActorRole{RoleOwner, RoleAdmin},
		to:     StatusApproved,
	},
	ActionDecline: {
		from:   []BookingStatus{StatusPending},
		actors: []ActorRole{RoleOwner, RoleAdmin},
		to:     StatusDeclined,
	},
	ActionCancel: {
		from:   []BookingStatus{StatusPending, StatusApproved, StatusPaid},
		actors: []ActorRole{RoleRenter, RoleOwner, RoleAdmin},
		to:     StatusCancelled,
	},
	ActionMarkPaid: {
		from:   []BookingStatus{StatusApproved},
		actors: []ActorRole{RoleOwner, RoleAdmin},
		to:     StatusPaid,
	},
	ActionComplete: {
		from:   []BookingStatus{StatusApproved, StatusPaid},
		actors: []ActorRole{RoleOwner, RoleAdmin},
		to:     StatusCompleted,
	},
}

// ParseAction converts a string to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := transitionRules[a]
	return a, ok
}

// IsValid returns true if the action is part of the state machine.
func (a Action) IsValid() bool {
	_, ok := transitionRules[a]
	return ok
}

// Target returns the status the action leads to.
func (a Action) Target() (BookingStatus, bool) {
	rule, ok := transitionRules[a]
	return rule.to, ok
}

// AllowsRole returns true if role may perform the action.
func (a Action) AllowsRole(role ActorRole) bool {
	rule, ok := transitionRules[a]
	if !ok {
		return false
	}
	role = role.permissionRole()
	for _, r := range rule.actors {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedFrom returns true if the action may be applied in status s.
func (a Action) AllowedFrom(s BookingStatus) bool {
	rule, ok := transitionRules[a]
	if !ok {
		return false
	}
	for _, from := range rule.from {
		if from == s {
			return true
		}
	}
	return false
}

// AvailableActions lists the actions role could apply from status s.
func AvailableActions(s BookingStatus, role ActorRole) []Action {
	var out []Action
	for _, a := range []Action{ActionApprove, ActionDecline, ActionMarkPaid, ActionComplete, ActionCancel} {
		if a.AllowedFrom(s) && a.AllowsRole(role) {
			out = append(out, a)
		}
	}
	return out
}
