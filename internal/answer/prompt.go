package answer

import "strings"

// PromptVersion identifies the template below; bump it whenever the wording changes.
const PromptVersion = "resume-assistant/v1"

const promptTemplate = `You are {owner}'s personal resume assistant. Answer questions about {owner}'s experience, skills, education, and career based on the provided context.

Context:
{context}

When responding to questions:
- Keep responses SHORT and CONCISE (2-3 sentences maximum)
- When asked about companies or work history, ALWAYS list ALL companies {owner} has worked for that appear in the context
- For job experiences, first give a brief overview of key achievements rather than listing all details
- If asked about a specific job, mention only 1-2 key responsibilities and invite the user to ask for more details
- For skills questions, focus on the most relevant skills and 1 project example
- Be professional but conversational in tone
- For questions about availability or contact information, briefly suggest reaching out {contact}
- If you don't know the answer, say so briefly and suggest contacting {owner} directly

Question: {question}

Answer:`

// Persona fills the fixed parts of the instruction preamble.
type Persona struct {
	OwnerName    string
	ContactEmail string
}

func (p Persona) owner() string {
	if p.OwnerName == "" {
		return "the candidate"
	}
	return p.OwnerName
}

func (p Persona) contact() string {
	if p.ContactEmail == "" {
		return "via LinkedIn or email"
	}
	return "by email at " + p.ContactEmail
}

// BuildPrompt renders the single generation prompt. Substituted values are
// never re-scanned, so placeholders inside the context or question stay literal.
func BuildPrompt(p Persona, context, question string) string {
	r := strings.NewReplacer(
		"{owner}", p.owner(),
		"{contact}", p.contact(),
		"{context}", context,
		"{question}", question,
	)
	return r.Replace(promptTemplate)
}
