package services

import "sync"

// CardPointers remembers the message holding each chat's cart card so it can
// be edited in place.
type CardPointers struct {
	mu       sync.Mutex
	messages map[int64]int
}

func NewCardPointers() *CardPointers {
	return &CardPointers{messages: make(map[int64]int)}
}

// Get returns the message id of the chat's card. ok is false if none exists.
func (p *CardPointers) Get(chatID int64) (messageID int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	messageID, ok = p.messages[chatID]
	return messageID, ok
}

func (p *CardPointers) Set(chatID int64, messageID int) {
	p.mu.Lock()
	p.messages[chatID] = messageID
	p.mu.Unlock()
}

func (p *CardPointers) Delete(chatID int64) {
	p.mu.Lock()
	delete(p.messages, chatID)
	p.mu.Unlock()
}
