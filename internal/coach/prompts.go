package coach

// systemPrompt defines the coaching persona. The five-stage structure
// mirrors a short human coaching session: connect, pick one priority,
// tie it to values, design one small action, then reflect.
const systemPrompt = `You are Solace, a compassionate, wise life coach informed by Baha'i principles and ADHD-supportive methodologies. You help people navigate life's challenges while honoring both neurodiversity and spiritual growth.

Communication style:
- Warm, encouraging, and concise. Responses are 1-2 sentences to avoid overwhelm.
- Frame goals and dilemmas through virtues such as unity, service, and justice.
- Ask one question at a time and let the user set the pace.
- Conversations should feel like talking with a good friend: fluid, human, occasionally humorous.

Every session follows this five-stage structure. Track your stage privately; never print it.
1. Ground & Connect: check in emotionally and spiritually, gauge energy levels.
2. Diagnose & Prioritize: help identify ONE key challenge or priority.
3. Values Alignment: connect the priority to virtues and relevant quotations.
4. Action Design: co-create one small, specific action (5-15 minutes), address one obstacle, offer calendar or task reminders when appropriate.
5. Reflect & Celebrate: celebrate effort and intention, close with encouragement.

Guardrails:
- Watch for emotional flooding and offer grounding techniques.
- Frame setbacks as learning opportunities, never moral failures.
- Recognize the boundary between coaching and therapy; never give medical advice.
- Treat everything the user shares as private.`

// greetingPrompt asks the model for a session-opening message. Prior
// session facts, when available, are appended as extra context.
const greetingPrompt = `You are starting a new coaching session. Generate a warm, natural greeting to welcome the user and invite them to share how they are feeling.`

// fallbackGreeting opens a session when the LLM is unavailable.
const fallbackGreeting = "Welcome to your coaching session. How can I support you today?"

// fallbackReply is returned when a completion fails mid-conversation.
const fallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// quotation is a short guiding passage surfaced during a session.
type quotation struct {
	Theme  string
	Text   string
	Source string
}

// quotations rotate with the session stage. Order matters: the stage
// counter indexes into this list modulo its length.
var quotations = []quotation{
	{
		Theme:  "unity",
		Text:   "The earth is but one country, and mankind its citizens.",
		Source: "Baha'u'llah",
	},
	{
		Theme:  "harmony",
		Text:   "Religion and science are the two wings upon which man's intelligence can soar into the heights, with which the human soul can progress.",
		Source: "'Abdu'l-Baha",
	},
	{
		Theme:  "equality",
		Text:   "The world of humanity is possessed of two wings: the male and the female. So long as these two wings are not equivalent in strength, the bird will not fly.",
		Source: "'Abdu'l-Baha",
	},
	{
		Theme:  "education",
		Text:   "Regard man as a mine rich in gems of inestimable value. Education can, alone, cause it to reveal its treasures, and enable mankind to benefit therefrom.",
		Source: "Baha'u'llah",
	},
	{
		Theme:  "service",
		Text:   "Service to humanity is service to God.",
		Source: "'Abdu'l-Baha",
	},
	{
		Theme:  "justice",
		Text:   "The purpose of justice is the appearance of unity among men.",
		Source: "Baha'u'llah",
	},
	{
		Theme:  "peace",
		Text:   "The well-being of mankind, its peace and security, are unattainable unless and until its unity is firmly established.",
		Source: "Baha'u'llah",
	},
	{
		Theme:  "consultation",
		Text:   "Consultation bestows greater awareness and transmutes conjecture into certitude. It is a shining light which, in a dark world, leads the way and guides.",
		Source: "Baha'u'llah",
	},
}

// quoteForStage picks the stage's quotation, skipping any already used
// this session so the same passage never repeats back-to-back. When
// every quotation has been used, the plain modulo pick stands.
func quoteForStage(stage int, used map[int]bool) (quotation, int) {
	n := len(quotations)
	idx := stage % n
	for i := 0; i < n; i++ {
		candidate := (idx + i) % n
		if !used[candidate] {
			return quotations[candidate], candidate
		}
	}
	return quotations[idx], idx
}
