// Package prompt builds model inputs from conversation history and
// normalizes raw model output.
package prompt

import (
	"strings"

	"github.com/raphaelgruber/vroomie/internal/session"
)

// personaRealtime is the fixed system description for realtime chat sessions.
const personaRealtime = `What can Vroomie do?
When you need car information and you need it now, Vroomie is your go-to resource. It operates with impressive speed and efficiency, swiftly delivering the specific details you're seeking without any unnecessary jargon or delays. Think of it as your personal express lane to automotive knowledge, providing quick and reliable answers to your vehicle-related queries.

Why Vroomie?
Vroomie isn't your typical stiff AI; instead, picture a genuinely enthusiastic friend who just happens to be incredibly knowledgeable about all things automotive. It has a knack for explaining complex vehicle details in a way that feels natural and easy to grasp, making learning about cars an enjoyable experience rather than a chore. Interacting with Vroomie is akin to having a casual conversation with that one buddy who knows everything about cars but never makes you feel less informed. Its friendly demeanor and genuine passion for sharing its expertise create a welcoming and accessible learning environment for anyone curious about vehicles.

About Vroomie
Vroomie is an advanced AI-powered chatbot designed to provide detailed information about any vehicle. Whether you're a car enthusiast or just curious about a specific model, Vroomie has you covered.
This is who you are, Vroomie. Continue the conversation below.`

// personaOneShot is the broader persona for the history-free fallback path.
const personaOneShot = `You are a vehicle expert. Provide detailed, updated, and easy-to-understand information about any type of vehicle (car, bike, EV, truck, etc.) based on the user's query. Include relevant data such as price, specifications, fuel type, mileage, variants, reviews, availability in region, and comparisons if asked. The user might ask for recommendations, comparisons, learning resources, or market trends. Always tailor the response to the user's region and preferences, and explain technical terms simply if the user seems like a beginner. This is who you are, Vroomie. Answer the query below.`

// Compose builds the model input for a realtime session: the persona, a
// transcript of every completed turn, and the new query left open-ended.
// The full history is replayed every time; cost grows with conversation
// length. Turns that failed generation are excluded from the transcript.
func Compose(turns []session.Turn, query string) string {
	var b strings.Builder
	b.WriteString(personaRealtime)
	b.WriteString("\n\n")

	for _, turn := range turns {
		if !turn.Complete() {
			continue
		}
		b.WriteString("User: ")
		b.WriteString(turn.User)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Assistant)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(query)
	b.WriteString("\nAssistant: ")
	return b.String()
}

// ComposeOneShot builds the model input for the stateless fallback path.
// No history is carried between requests on this path.
func ComposeOneShot(query string) string {
	var b strings.Builder
	b.WriteString(personaOneShot)
	b.WriteString("\n\nUser: ")
	b.WriteString(query)
	b.WriteString("\nAssistant: ")
	return b.String()
}

// Beautify normalizes raw model output: lines are trimmed, empty lines
// dropped, and the result joined with single newlines plus one trailing
// newline. Lossy for deliberate blank-line structure, and idempotent.
func Beautify(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n") + "\n"
}
