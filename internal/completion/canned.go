package completion

import (
	"context"
	"fmt"
)

const cannedPrefixRunes = 80

// Canned answers locally when no live provider is reachable. It never fails.
type Canned struct{}

func (Canned) Name() string    { return SourceCanned }
func (Canned) Available() bool { return true }

func (Canned) Generate(_ context.Context, req Request) (string, error) {
	return CannedReply(req.Message), nil
}

// CannedReply echoes the first 80 runes of the user's message.
func CannedReply(message string) string {
	r := []rune(message)
	if len(r) > cannedPrefixRunes {
		r = r[:cannedPrefixRunes]
	}
	return fmt.Sprintf("Thanks for your question!\n\n"+
		"I don't have access to the AI backend right now, but here's a helpful summary: "+
		"(You asked: %s...)\n\n"+
		"Products we offer: Vrindavan Prem (perfume), Coco-Peat, Coconut husk plates, and Bricket. "+
		"You can ask about product details, delivery, payment options, or partnerships.", string(r))
}
