package config

import "strings"

// ChannelID is an opaque channel key. The engine only distinguishes
// decks, the master bus and everything else.
type ChannelID string

// Conventional channel identifiers.
const (
	DeckA  ChannelID = "deck_a"
	DeckB  ChannelID = "deck_b"
	Aux1   ChannelID = "aux_1"
	Aux2   ChannelID = "aux_2"
	Aux3   ChannelID = "aux_3"
	Aux4   ChannelID = "aux_4"
	Voice  ChannelID = "voice"
	Master ChannelID = "master"
)

// Kind classifies a channel.
type Kind int

const (
	KindAux Kind = iota
	KindDeck
	KindMaster
)

func (k Kind) String() string {
	switch k {
	case KindDeck:
		return "deck"
	case KindMaster:
		return "master"
	default:
		return "aux"
	}
}

// Kind returns the class of c.
func (c ChannelID) Kind() Kind {
	switch {
	case c == Master:
		return KindMaster
	case strings.HasPrefix(string(c), "deck_"):
		return KindDeck
	default:
		return KindAux
	}
}

// DefaultChannels returns the conventional channel set in mixing order.
func DefaultChannels() []ChannelID {
	return []ChannelID{DeckA, DeckB, Aux1, Aux2, Aux3, Aux4, Voice, Master}
}
