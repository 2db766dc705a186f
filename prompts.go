package tryon

import (
	"fmt"
	"strings"
)

const modelImagePrompt = "You are an expert fashion photography AI. Transform the person in this image into a full-body fashion model photo suitable for an e-commerce website. " +
	"If only a face is provided, generate a realistic full-body fashion model that preserves the person's facial features and identity, placing them in a standard, relaxed model pose. " +
	"The background must be a clean, neutral studio backdrop (light gray, #f0f0f0). The person should have a neutral, professional model expression. " +
	"Preserve the person's identity, unique features, and body type. The final image must be photorealistic. Return ONLY the final image."

const stylistInstruction = `You are 'What2Wear', an expert AI fashion stylist. Your goal is to create beautiful, detailed outfits that look amazing on the person.

Based on the user's request and the chat history, create a detailed visual description of a complete outfit.

IMPORTANT:
- Write detailed visual descriptions with specific colors, styles and combinations that work well together.
- Describe the complete outfit: top, bottom, outerwear, accessories, shoes, etc.
- Use descriptive, specific language (e.g. 'indigo skinny jeans', not just 'jeans').
- Give a short, friendly explanation of why this outfit is perfect.
- Be creative and have great taste.
- The description will be used by an AI to generate an image of the outfit, so be detailed.`

// recommendationSchema requires exactly the two recommendation fields.
var recommendationSchema = &Schema{
	Properties: []SchemaProperty{
		{
			Name:        "outfitDescription",
			Description: "A detailed visual description of the complete outfit with specific colors, styles and garments.",
		},
		{
			Name:        "reasoning",
			Description: "A short, friendly and stylish explanation of why this outfit was chosen.",
		},
	},
	Required: []string{"outfitDescription", "reasoning"},
}

func buildRecommendationPrompt(wardrobe Wardrobe, history []ChatMessage) string {
	var b strings.Builder
	b.WriteString("This is the conversation history:\n")
	b.WriteString(FormatTranscript(history))
	b.WriteString("\n\n")
	if catalog := wardrobe.describe(); catalog != "" {
		b.WriteString("Wardrobe pieces available for inspiration:\n")
		b.WriteString(catalog)
		b.WriteString("\n")
	}
	b.WriteString("Based on the user's last message, please suggest a new outfit with a detailed visual description.")
	return b.String()
}

func buildOutfitImagePrompt(outfitDescription string) string {
	return fmt.Sprintf(`You are an expert in AI virtual clothing try-on. You are given a 'model image' and a 'detailed outfit description'.

Your task: create a new photorealistic image where the person in the 'model image' wears EXACTLY the described outfit.

OUTFIT DESCRIPTION TO CREATE:
%s

**Critical Rules:**
1. **Complete Replacement:** COMPLETELY replace the person's current clothing with the described outfit.
2. **Faithful to the Description:** Follow the description exactly - colors, styles, specific garments.
3. **Preserve Identity:** The face, hair, body shape, pose and background MUST remain unchanged.
4. **Logical Layers:** Layer garments realistically (jacket over shirt, shirt over trousers, etc).
5. **Realistic Details:** Add natural folds, shadows and lighting that match the original lighting.
6. **Output:** Return ONLY the complete final image. Do not include text or annotations.`, outfitDescription)
}
