package model

import (
	"errors"
	"fmt"
	"strings"
)

// Topic errors.
var (
	ErrInvalidTopicClass = errors.New("invalid topic class")
	ErrEmptyTopicID      = errors.New("topic id is empty")
)

// TopicClass identifies a kind of subscribable entity stream.
type TopicClass string

const (
	// TopicTransaction streams status changes of a single transaction.
	TopicTransaction TopicClass = "transaction"

	// TopicWallet streams balance changes and payments of a wallet.
	TopicWallet TopicClass = "wallet"

	// TopicCheckDeposit streams status changes of a check deposit.
	TopicCheckDeposit TopicClass = "check_deposit"
)

// IsValid reports whether c is one of the known topic classes.
func (c TopicClass) IsValid() bool {
	switch c {
	case TopicTransaction, TopicWallet, TopicCheckDeposit:
		return true
	default:
		return false
	}
}

// String returns the wire name of the class.
func (c TopicClass) String() string {
	return string(c)
}

// Topic uniquely identifies a server-side stream. Topic is comparable and
// can be used as a map key.
type Topic struct {
	Class TopicClass `cbor:"1,keyasint"`
	ID    string     `cbor:"2,keyasint"`
}

// NewTopic creates a topic and validates it.
func NewTopic(class TopicClass, id string) (Topic, error) {
	t := Topic{Class: class, ID: id}
	if err := t.Validate(); err != nil {
		return Topic{}, err
	}
	return t, nil
}

// Validate checks that the class is known and the id is not blank.
func (t Topic) Validate() error {
	if !t.Class.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTopicClass, t.Class)
	}
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyTopicID
	}
	return nil
}

// String returns "class:id".
func (t Topic) String() string {
	return string(t.Class) + ":" + t.ID
}

// ParseTopic parses the "class:id" form produced by String.
func ParseTopic(s string) (Topic, error) {
	class, id, ok := strings.Cut(s, ":")
	if !ok {
		return Topic{}, fmt.Errorf("malformed topic %q", s)
	}
	return NewTopic(TopicClass(class), id)
}

// EntityKind names the kind of entity a cached snapshot belongs to.
type EntityKind string

const (
	EntityTransaction  EntityKind = "transaction"
	EntityPayment      EntityKind = "payment"
	EntityWallet       EntityKind = "wallet"
	EntityCheckDeposit EntityKind = "check_deposit"
)

// EntityKey identifies one cached snapshot. Keys are namespaced by kind so
// that a wallet and a transaction sharing an id never overwrite each other.
type EntityKey string

// NewEntityKey builds the key for an entity of the given kind.
func NewEntityKey(kind EntityKind, id string) EntityKey {
	return EntityKey(string(kind) + ":" + id)
}

// Kind returns the entity kind part of the key.
func (k EntityKey) Kind() EntityKind {
	kind, _, _ := strings.Cut(string(k), ":")
	return EntityKind(kind)
}

// ID returns the entity id part of the key.
func (k EntityKey) ID() string {
	_, id, _ := strings.Cut(string(k), ":")
	return id
}
