package models

// EntityType identifies the kind of record a change or sync operation
// refers to. The value doubles as the collection name on the wire and
// as the partition key in local storage.
type EntityType string

const (
	// EntityMessages are chat messages.
	EntityMessages EntityType = "messages"

	// EntityChats are conversations (direct or group).
	EntityChats EntityType = "chats"

	// EntityUsers are account/profile records of other users.
	EntityUsers EntityType = "users"

	// EntityDepartments are organizational units users belong to.
	EntityDepartments EntityType = "departments"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityMessages, EntityChats, EntityUsers, EntityDepartments:
		return true
	default:
		return false
	}
}

// ChangeAction is the mutation verb carried by a change record.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// Valid reports whether a is one of the known actions.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}
