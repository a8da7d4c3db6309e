package soapstone

import (
	"errors"
	"time"
)

// Message is a templated note left by a player in a shop "zone". Free text is
// not accepted: messages assemble from fixed phrases the way the in-game
// soapstones do, which keeps moderation out of scope.
type Message struct {
	ID          string    `bson:"_id" json:"id"`
	AuthorID    int64     `bson:"authorId" json:"-"`
	AuthorName  string    `bson:"authorName" json:"authorName"`
	Zone        string    `bson:"zone" json:"zone"`
	Template    string    `bson:"template" json:"template"`
	Conjunction string    `bson:"conjunction,omitempty" json:"conjunction,omitempty"`
	Template2   string    `bson:"template2,omitempty" json:"template2,omitempty"`
	Appraisals  int64     `bson:"appraisals" json:"appraisals"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Text renders the composed message.
func (m Message) Text() string {
	if m.Conjunction == "" || m.Template2 == "" {
		return m.Template
	}
	return m.Template + " " + m.Conjunction + " " + m.Template2
}

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidTemplate = errors.New("invalid template")
	ErrInvalidZone     = errors.New("invalid zone")
)

// phrase sets a message may be built from
var templates = map[string]bool{
	"try petals":            true,
	"amazing merch ahead":   true,
	"beware of empty wallet": true,
	"praise the shop":       true,
	"visionary gacha ahead": true,
	"don't give up, skeleton": true,
	"sale required ahead":   true,
	"time for crab":         true,
}

var conjunctions = map[string]bool{
	"and then": true,
	"but":      true,
	"therefore": true,
	"in short": true,
}
