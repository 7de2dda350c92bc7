package statestore

// Repo manages the single durable session-state record. The record is an
// opaque JSON blob owned by the session's token store; one record = one
// session owner. Implementations must make Write atomic so a concurrent
// reader never observes a partially written record.
type Repo interface {
	Exists() (bool, error)
	Read() ([]byte, error)
	Write(data []byte) error
	Delete() error
}
