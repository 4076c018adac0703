package oracle

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/documentrouter/internal/models"
)

// SystemPrompt is installed on the model as its system instruction.
const SystemPrompt = "You are a document intake assistant. You classify business documents and extract short, factual information from them. Answer with exactly what is asked and nothing else."

const classifyTemplate = `Given the following %s content, classify its primary intent.
Choose one of the following intents: %s.
If none seem to fit well, choose 'General Inquiry'.
Respond with the intent name only.

Content:
---
%s
---
Primary Intent:`

const senderTemplate = `Extract the sender's full email address or name from the following email content. If multiple are present, pick the primary sender. If none, respond with 'Unknown'.

Email Content:
%s

Sender:`

const urgencyTemplate = `Assess the urgency of the following email content as Low, Medium, or High. Provide only the urgency level.

Email Content:
%s

Urgency:`

const summaryTemplate = `Analyze the following content, which has been identified as related to '%s'.
Provide a concise summary suitable for a CRM system.
Include:
- Main topic/request.
- Key entities mentioned (people, companies, products if applicable).
- Any explicit action items or deadlines.

Content:
---
%s
---
CRM Summary:`

func classifyPrompt(text string, format models.Format) string {
	names := make([]string, len(models.Intents))
	for i, in := range models.Intents {
		names[i] = string(in)
	}
	return fmt.Sprintf(classifyTemplate, format, strings.Join(names, ", "), Truncate(text, ClassifyMaxChars))
}

func senderPrompt(text string) string {
	return fmt.Sprintf(senderTemplate, Truncate(text, SenderMaxChars))
}

func urgencyPrompt(text string) string {
	return fmt.Sprintf(urgencyTemplate, Truncate(text, UrgencyMaxChars))
}

func summaryPrompt(text string, intent models.Intent) string {
	return fmt.Sprintf(summaryTemplate, intent, Truncate(text, SummaryMaxChars))
}
