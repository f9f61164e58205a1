package domain

import "time"

// Event Model. Organizer and guest sets are disjoint: a user cannot hold
// both memberships on the same event. PointsRemain and PointsAwarded split a
// fixed budget; awards move points from one to the other.
type Event struct {
	ID            uint      `gorm:"primaryKey"`
	Name          string    `gorm:"not null"`
	Description   string    `gorm:"not null"`
	Location      string    `gorm:"not null"`
	StartTime     time.Time `gorm:"not null"`
	EndTime       time.Time `gorm:"not null"`
	Capacity      *int      // Guest limit; nil means unbounded
	PointsRemain  int       `gorm:"not null;default:0"` // Budget left to award
	PointsAwarded int       `gorm:"not null;default:0"` // Budget already handed out
	Published     bool      `gorm:"not null;default:false"` // One-way flag

	Organizers []User `gorm:"many2many:event_organizers"`
	Guests     []User `gorm:"many2many:event_guests"`
	CreatedAt  time.Time
}

// Ended reports whether the event's end time has passed.
func (e *Event) Ended(now time.Time) bool {
	return e.EndTime.Before(now)
}

// Full reports whether the guest list has reached capacity.
func (e *Event) Full(guestCount int) bool {
	return e.Capacity != nil && guestCount >= *e.Capacity
}

// HasOrganizer reports whether the given user is a registered organizer.
// Organizers must be preloaded.
func (e *Event) HasOrganizer(userID uint) bool {
	for _, o := range e.Organizers {
		if o.ID == userID {
			return true
		}
	}
	return false
}

// HasGuest reports whether the given user is on the guest list. Guests must
// be preloaded.
func (e *Event) HasGuest(userID uint) bool {
	for _, g := range e.Guests {
		if g.ID == userID {
			return true
		}
	}
	return false
}
