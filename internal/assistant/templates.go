package assistant

import (
	"slices"
	"strings"

	"github.com/lewisedginton/ward_desk/internal/intent"
	"github.com/lewisedginton/ward_desk/internal/session_store"
)

// SupportedLanguages are the language codes a session may select. The first is
// the base language every template falls back to.
var SupportedLanguages = []string{"en", "af", "zu", "xh"}

// IsSupportedLanguage reports whether code is one of SupportedLanguages.
func IsSupportedLanguage(code string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(strings.TrimSpace(code)))
}

// Templates maps intent to language code to response text.
type Templates map[intent.Intent]map[string]string

// Render returns the template for in and lang, falling back to the base
// language and then to the Unknown template.
func (t Templates) Render(in intent.Intent, lang string) string {
	if text, ok := t.lookup(in, lang); ok {
		return text
	}
	text, _ := t.lookup(intent.Unknown, lang)
	return text
}

func (t Templates) lookup(in intent.Intent, lang string) (string, bool) {
	byLang, ok := t[in]
	if !ok {
		return "", false
	}
	if text, ok := byLang[lang]; ok && text != "" {
		return text, true
	}
	text, ok := byLang[session_store.DefaultLanguage]
	return text, ok && text != ""
}

// DefaultTemplates is the built-in response table.
var DefaultTemplates = Templates{
	intent.Greeting: {
		"en": "Hello! Welcome to VOO Ward services. How can I assist you today?\n\n1. Bursary Application\n2. Report Issue\n3. Check Status\n4. Get Information",
		"af": "Hallo! Welkom by VOO Wyk dienste. Hoe kan ek jou vandag help?",
		"zu": "Sawubona! Wamukelekile kwiinkonzo zeVOO Ward. Ndingakunceda njani namhlanje?",
		"xh": "Molo! Wamkelekile kwiinkonzo zeVOO Ward. Ndingakunceda njani namhlanje?",
	},
	intent.BursaryApplication: {
		"en": "I can help you with bursary applications. To apply, you'll need:\n\n1. ID document\n2. Proof of registration\n3. Academic records\n\nWould you like me to guide you through the application process?",
		"af": "Ek kan jou help met beurse aansoeke...",
		"zu": "Ngingakusiza ngesicelo sezibonelelo zemfundo...",
		"xh": "Ndingakunceda ngesicelo sezibonelelo zemfundo...",
	},
	intent.IssueReporting: {
		"en": "I'm sorry to hear about the issue. To report it properly, please provide:\n\n1. Location/Area\n2. Type of problem\n3. Urgency level\n\nWhat type of issue would you like to report?",
		"af": "Jammer om van die probleem te hoor...",
		"zu": "Ngiyaxolisa ngenkinga...",
		"xh": "Ndiyaxolisa ngengxaki...",
	},
	intent.StatusCheck: {
		"en": "I can help you check your application status. Please provide your reference number or ID number, and I'll look up your information.",
		"af": "Ek kan jou help om jou aansoek status na te gaan...",
		"zu": "Ngingakusiza ukuhlola isimo sakho sesicelo...",
		"xh": "Ndingakunceda ukukhangela isimo sesicelo sakho...",
	},
	intent.InformationRequest: {
		"en": "I can share information about bursaries, issue reporting, registration and ward services. What would you like to know?",
	},
	intent.AreaInquiry: {
		"en": "The ward covers multiple areas. Dial *120*8001# and select 'Area Information' for specific area details, or tell me your area code.",
	},
	intent.ContactInfo: {
		"en": "Ward office: 021-XXX-XXXX\nEmail: ward@voo.gov.za\nOffice hours: Monday-Friday 8AM-4PM",
	},
	intent.Emergency: {
		"en": "If this is an emergency, call 10111 now. I have flagged your message for the ward office.",
	},
	intent.Goodbye: {
		"en": "Thank you for using VOO Ward Services! Goodbye.",
	},
	intent.Complaint: {
		"en": "I'm sorry about your experience. Your complaint has been noted and a ward official will review it.",
	},
	intent.Unknown: {
		"en": "I'm not sure I understand. Could you please rephrase your question? I can help with:\n\n• Bursary applications\n• Issue reporting\n• Status checks\n• General information",
		"af": "Ek is nie seker ek verstaan nie...",
		"zu": "Angiqiniseki ukuthi ngiyaqonda...",
		"xh": "Andiqiniseki ukuba ndiyaqonda...",
	},
}
