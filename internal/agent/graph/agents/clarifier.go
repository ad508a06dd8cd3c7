package agents

import (
	"strings"

	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

// Clarify asks for the fields the effective intent is missing and marks the
// conversation as awaiting more information. It never clears the flag.
func Clarify(st *model.ConversationState) []Field {
	intent := EffectiveIntent(st)
	missing := Missing(intent, st)

	var msg string
	if len(missing) == 0 {
		msg = "Could you tell me a bit more about what you have in mind for your trip?"
	} else {
		labels := lo.Map(missing, func(f Field, _ int) string { return f.Label() })
		msg = "To help you better, I need some additional information: " + joinLabels(labels) + "."
	}
	st.AppendAssistantMessage(msg)
	st.NeedsMoreInfo = true
	st.PendingIntent = intent
	return missing
}

func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " and " + labels[1]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}
