package shared

// BaseAggregateRoot adds optimistic-lock versioning and domain event
// collection on top of BaseEntity. Events accumulate on the aggregate until
// the application layer pulls them for publication after a successful save.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`

	pendingEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// BumpVersion records a state change for optimistic locking.
func (a *BaseAggregateRoot) BumpVersion() {
	a.Version++
}

// AddDomainEvent queues an event for publication once the aggregate
// has been persisted.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pendingEvents = append(a.pendingEvents, event)
}

// DomainEvents returns the queued events without consuming them.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.pendingEvents
}

// PullDomainEvents returns the queued events and empties the queue.
// The caller owns publication; a pulled event is never re-delivered.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pendingEvents
	a.pendingEvents = nil
	return events
}
