package tryon

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNoModelImage is returned when a conversation has no model image to dress.
var ErrNoModelImage = errors.New("conversation has no model image")

// Turn is the stylist's answer to one user message.
type Turn struct {
	Recommendation *OutfitRecommendation `json:"recommendation"`
	Image          string                `json:"image"`
}

// Conversation is one user's styling session: the chat history plus the
// model image outfits are composed onto.
type Conversation struct {
	stylist  *Stylist
	wardrobe Wardrobe

	history    []ChatMessage
	modelImage string

	// send serializes Send; mu guards the fields above and is never held
	// across a model call.
	send sync.Mutex
	mu   sync.Mutex
}

// StartConversation begins a conversation around an existing model image.
func (s *Stylist) StartConversation(wardrobe Wardrobe, modelImage string) *Conversation {
	return &Conversation{
		stylist:    s,
		wardrobe:   wardrobe,
		history:    make([]ChatMessage, 0),
		modelImage: modelImage,
	}
}

// Send records the user's message, asks for a recommendation and renders it
// on the model image. On failure the history is left unchanged. Sends are
// serialized; the other methods do not wait for an in-flight Send.
func (c *Conversation) Send(ctx context.Context, text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	c.send.Lock()
	defer c.send.Unlock()

	userTurn := ChatMessage{Role: RoleUser, Content: text}

	c.mu.Lock()
	modelImage := c.modelImage
	history := append(append(make([]ChatMessage, 0, len(c.history)+1), c.history...), userTurn)
	c.mu.Unlock()

	if modelImage == "" {
		return nil, ErrNoModelImage
	}

	rec, err := c.stylist.GetOutfitRecommendation(ctx, c.wardrobe, history)
	if err != nil {
		return nil, err
	}

	image, err := c.stylist.GenerateOutfitImage(ctx, modelImage, rec.OutfitDescription)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.history = append(c.history,
		userTurn,
		ChatMessage{Role: RoleStylist, Content: rec.Reasoning},
		ChatMessage{Role: RoleStylist, ImageURI: image},
	)
	c.mu.Unlock()

	return &Turn{
		Recommendation: rec,
		Image:          image,
	}, nil
}

// SetModelImage replaces the image outfits are composed onto.
func (c *Conversation) SetModelImage(modelImage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modelImage = modelImage
}

// ModelImage returns the current model image.
func (c *Conversation) ModelImage() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.modelImage
}

// History returns the conversation history.
func (c *Conversation) History() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	historyCopy := make([]ChatMessage, len(c.history))
	copy(historyCopy, c.history)
	return historyCopy
}

// Clear resets the conversation history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = make([]ChatMessage, 0)
}
